// Package memory is an in-process implementation of domain.Store. A store-wide
// mutex serializes units of work and a snapshot taken at the start of each unit
// is restored when the unit fails.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

type storedTransaction struct {
	seq int64
	tx  domain.Transaction
}

type state struct {
	users        map[uuid.UUID]domain.User
	accounts     map[int64]domain.Account
	transactions []storedTransaction
	seq          int64
}

func (s *state) clone() *state {
	cp := &state{
		users:        make(map[uuid.UUID]domain.User, len(s.users)),
		accounts:     make(map[int64]domain.Account, len(s.accounts)),
		transactions: s.transactions[:len(s.transactions):len(s.transactions)],
		seq:          s.seq,
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.accounts {
		cp.accounts[k] = v
	}
	return cp
}

type database struct {
	mu       sync.Mutex
	state    *state
	failHook func(op string) error
}

// Store implements domain.Store in memory.
type Store struct {
	db     *database
	inTx   bool
	logger *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		db: &database{
			state: &state{
				users:    make(map[uuid.UUID]domain.User),
				accounts: make(map[int64]domain.Account),
			},
		},
		logger: logger,
	}
}

// SetFailHook installs fn, which is consulted before every write. A non-nil
// return fails that write as a store error. Used to exercise rollback.
func (s *Store) SetFailHook(fn func(op string) error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.failHook = fn
}

// UserCount reports how many users are stored.
func (s *Store) UserCount() int {
	var n int
	_ = s.run(func(st *state) error {
		n = len(st.users)
		return nil
	})
	return n
}

func (s *Store) User() domain.UserRepository {
	return &userRepository{store: s}
}

func (s *Store) Account() domain.AccountRepository {
	return &accountRepository{store: s}
}

func (s *Store) Transaction() domain.TransactionRepository {
	return &transactionRepository{store: s}
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) (err error) {
	if s.inTx {
		return errors.ErrCannotBeginTransaction
	}
	if err := ctx.Err(); err != nil {
		return errors.NewStoreError(err)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	snapshot := s.db.state.clone()
	txStore := &Store{db: s.db, inTx: true, logger: s.logger}

	defer func() {
		if p := recover(); p != nil {
			s.db.state = snapshot
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		s.db.state = snapshot
		return err
	}
	return nil
}

// run executes op under the store lock unless the caller already holds it.
func (s *Store) run(op func(st *state) error) error {
	if !s.inTx {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	return op(s.db.state)
}

func (s *Store) checkWrite(op string) error {
	if s.db.failHook == nil {
		return nil
	}
	if err := s.db.failHook(op); err != nil {
		s.logger.Error("Injected write failure", "op", op, "error", err)
		return errors.NewStoreError(err)
	}
	return nil
}

type userRepository struct {
	store *Store
}

func (r *userRepository) CreateUser(_ context.Context, user *domain.User) error {
	return r.store.run(func(st *state) error {
		if err := r.store.checkWrite("CreateUser"); err != nil {
			return err
		}
		if _, ok := st.users[user.ID]; ok {
			return errors.NewStoreError(fmt.Errorf("duplicate user %s", user.ID))
		}
		st.users[user.ID] = *user
		return nil
	})
}

type accountRepository struct {
	store *Store
}

func copyAccount(a domain.Account) *domain.Account {
	if a.LastWithdrawalDate != nil {
		d := *a.LastWithdrawalDate
		a.LastWithdrawalDate = &d
	}
	return &a
}

func (r *accountRepository) CreateAccount(_ context.Context, account *domain.Account) error {
	return r.store.run(func(st *state) error {
		if err := r.store.checkWrite("CreateAccount"); err != nil {
			return err
		}
		if _, ok := st.accounts[account.Number]; ok {
			return errors.ErrDuplicateAccount
		}
		if _, ok := st.users[account.UserID]; !ok {
			return errors.NewStoreError(fmt.Errorf("unknown user %s", account.UserID))
		}
		now := time.Now()
		account.CreatedAt = now
		account.UpdatedAt = now
		st.accounts[account.Number] = *copyAccount(*account)
		return nil
	})
}

func (r *accountRepository) GetAccount(_ context.Context, number int64) (*domain.Account, error) {
	var out *domain.Account
	err := r.store.run(func(st *state) error {
		a, ok := st.accounts[number]
		if !ok {
			return errors.ErrAccountNotFound
		}
		out = copyAccount(a)
		return nil
	})
	return out, err
}

// GetAccountForUpdate needs no row lock: units of work already hold the store lock.
func (r *accountRepository) GetAccountForUpdate(ctx context.Context, number int64) (*domain.Account, error) {
	return r.GetAccount(ctx, number)
}

func (r *accountRepository) GetAccountView(_ context.Context, number int64) (*domain.AccountView, error) {
	var out *domain.AccountView
	err := r.store.run(func(st *state) error {
		a, ok := st.accounts[number]
		if !ok {
			return errors.ErrAccountNotFound
		}
		u, ok := st.users[a.UserID]
		if !ok {
			return errors.ErrAccountNotFound
		}
		out = &domain.AccountView{
			Name:          u.Name,
			AccountNumber: a.Number,
			Balance:       a.Balance,
			PinHash:       u.PinHash,
		}
		return nil
	})
	return out, err
}

func (r *accountRepository) AccountExists(_ context.Context, number int64) (bool, error) {
	var exists bool
	err := r.store.run(func(st *state) error {
		_, exists = st.accounts[number]
		return nil
	})
	return exists, err
}

func (r *accountRepository) UpdateAccount(_ context.Context, account *domain.Account) error {
	return r.store.run(func(st *state) error {
		if err := r.store.checkWrite("UpdateAccount"); err != nil {
			return err
		}
		current, ok := st.accounts[account.Number]
		if !ok {
			return errors.ErrAccountNotFound
		}
		if account.Balance.IsNegative() {
			return errors.NewStoreError(fmt.Errorf("balance check violated for %d", account.Number))
		}
		current.Balance = account.Balance
		current.DailyWithdrawn = account.DailyWithdrawn
		current.LastWithdrawalDate = account.LastWithdrawalDate
		current.UpdatedAt = time.Now()
		st.accounts[account.Number] = *copyAccount(current)
		account.UpdatedAt = current.UpdatedAt
		return nil
	})
}

type transactionRepository struct {
	store *Store
}

func (r *transactionRepository) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	return r.store.run(func(st *state) error {
		if err := r.store.checkWrite("CreateTransaction"); err != nil {
			return err
		}
		if _, ok := st.accounts[tx.AccountNumber]; !ok {
			return errors.NewStoreError(fmt.Errorf("unknown account %d", tx.AccountNumber))
		}
		if tx.ID == uuid.Nil {
			tx.ID = uuid.New()
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = time.Now()
		}
		st.seq++
		record := *tx
		if tx.TargetAccountNumber != nil {
			target := *tx.TargetAccountNumber
			record.TargetAccountNumber = &target
		}
		st.transactions = append(st.transactions, storedTransaction{seq: st.seq, tx: record})
		return nil
	})
}

func (r *transactionRepository) ListRecent(_ context.Context, accountNumber int64, limit int) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := r.store.run(func(st *state) error {
		matched := make([]storedTransaction, 0)
		for _, rec := range st.transactions {
			if rec.tx.AccountNumber == accountNumber {
				matched = append(matched, rec)
			}
		}
		sort.SliceStable(matched, func(i, j int) bool {
			if !matched[i].tx.CreatedAt.Equal(matched[j].tx.CreatedAt) {
				return matched[i].tx.CreatedAt.After(matched[j].tx.CreatedAt)
			}
			return matched[i].seq > matched[j].seq
		})
		if limit >= 0 && len(matched) > limit {
			matched = matched[:limit]
		}
		out = make([]domain.Transaction, 0, len(matched))
		for _, rec := range matched {
			out = append(out, rec.tx)
		}
		return nil
	})
	return out, err
}

var _ domain.Store = (*Store)(nil)
