package repository_test

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
	"account-ledger/internal/repository"
	"account-ledger/internal/service"
	"account-ledger/internal/testsupport"
)

type RepositoryTestSuite struct {
	suite.Suite
	pg     *testsupport.Postgres
	store  *repository.Store
	logger *slog.Logger
	ctx    context.Context
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupSuite() {
	s.pg = testsupport.StartPostgres(s.T())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = repository.NewStore(s.pg.DB, s.logger)
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) SetupTest() {
	s.pg.Reset(s.T())
}

func (s *RepositoryTestSuite) createAccount(number int64, balance string) {
	user := &domain.User{ID: uuid.New(), Name: "Alice", PinHash: "digest", CreatedAt: time.Now()}
	s.Require().NoError(s.store.User().CreateUser(s.ctx, user))
	s.Require().NoError(s.store.Account().CreateAccount(s.ctx, &domain.Account{
		Number:         number,
		UserID:         user.ID,
		Balance:        decimal.RequireFromString(balance),
		DailyWithdrawn: decimal.Zero,
	}))
}

func (s *RepositoryTestSuite) TestAccountRoundTrip() {
	const n int64 = 123_456_789_012
	s.createAccount(n, "150.25")

	account, err := s.store.Account().GetAccount(s.ctx, n)
	s.Require().NoError(err)
	s.True(account.Balance.Equal(decimal.RequireFromString("150.25")))
	s.Nil(account.LastWithdrawalDate)

	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	account.Balance = decimal.RequireFromString("50")
	account.DailyWithdrawn = decimal.RequireFromString("100")
	account.LastWithdrawalDate = &day
	s.Require().NoError(s.store.Account().UpdateAccount(s.ctx, account))

	reloaded, err := s.store.Account().GetAccount(s.ctx, n)
	s.Require().NoError(err)
	s.True(reloaded.Balance.Equal(decimal.RequireFromString("50")))
	s.True(reloaded.DailyWithdrawn.Equal(decimal.RequireFromString("100")))
	s.Require().NotNil(reloaded.LastWithdrawalDate)
	s.Equal(day, domain.CivilDate(*reloaded.LastWithdrawalDate))

	view, err := s.store.Account().GetAccountView(s.ctx, n)
	s.Require().NoError(err)
	s.Equal("Alice", view.Name)
	s.Equal("digest", view.PinHash)
}

func (s *RepositoryTestSuite) TestDriverErrorsAreClassified() {
	const n int64 = 123_456_789_012
	s.createAccount(n, "0")

	_, err := s.store.Account().GetAccount(s.ctx, 999_999_999_999)
	s.ErrorIs(err, errors.ErrAccountNotFound)

	account, err := s.store.Account().GetAccount(s.ctx, n)
	s.Require().NoError(err)
	s.ErrorIs(s.store.Account().CreateAccount(s.ctx, account), errors.ErrDuplicateAccount)

	// The balance CHECK constraint surfaces as a store error.
	account.Balance = decimal.NewFromInt(-1)
	s.ErrorIs(s.store.Account().UpdateAccount(s.ctx, account), errors.ErrStore)
}

func (s *RepositoryTestSuite) TestLargeBalancesAreStored() {
	const n int64 = 123_456_789_012
	s.createAccount(n, "0")
	txs := service.NewTransactionService(s.store, domain.DefaultPolicy(), s.logger)

	huge := decimal.RequireFromString("99999999999999999999.99")
	balance, err := txs.Deposit(s.ctx, n, huge)
	s.Require().NoError(err)
	s.True(balance.Equal(huge))

	account, err := s.store.Account().GetAccount(s.ctx, n)
	s.Require().NoError(err)
	s.True(account.Balance.Equal(huge))

	history, err := s.store.Transaction().ListRecent(s.ctx, n, 1)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.True(history[0].Amount.Equal(huge))
}

func (s *RepositoryTestSuite) TestSubCentBalanceIsRejected() {
	const n int64 = 123_456_789_012
	s.createAccount(n, "0")

	account, err := s.store.Account().GetAccount(s.ctx, n)
	s.Require().NoError(err)
	account.Balance = decimal.RequireFromString("1.005")
	s.ErrorIs(s.store.Account().UpdateAccount(s.ctx, account), errors.ErrStore)
}

func (s *RepositoryTestSuite) TestTransactionRollback() {
	const n int64 = 123_456_789_012
	s.createAccount(n, "100")
	boom := stderrors.New("boom")

	err := s.store.WithTransaction(s.ctx, func(tx domain.Store) error {
		account, err := tx.Account().GetAccountForUpdate(s.ctx, n)
		s.Require().NoError(err)
		account.Balance = decimal.Zero
		s.Require().NoError(tx.Account().UpdateAccount(s.ctx, account))
		s.Require().NoError(tx.Transaction().CreateTransaction(s.ctx, &domain.Transaction{
			AccountNumber: n,
			Type:          domain.TransactionTypeWithdrawal,
			Amount:        decimal.NewFromInt(100),
		}))
		return boom
	})
	s.ErrorIs(err, boom)

	account, err := s.store.Account().GetAccount(s.ctx, n)
	s.Require().NoError(err)
	s.True(account.Balance.Equal(decimal.NewFromInt(100)))

	history, err := s.store.Transaction().ListRecent(s.ctx, n, 5)
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *RepositoryTestSuite) TestListRecentOrdering() {
	const n, target int64 = 123_456_789_012, 210_987_654_321
	s.createAccount(n, "0")
	s.createAccount(target, "0")
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 7; i++ {
		tx := &domain.Transaction{
			AccountNumber: n,
			Type:          domain.TransactionTypeDeposit,
			Amount:        decimal.NewFromInt(int64(i)),
			CreatedAt:     at,
		}
		if i == 7 {
			tx.Type = domain.TransactionTypeTransfer
			targetNumber := target
			tx.TargetAccountNumber = &targetNumber
		}
		s.Require().NoError(s.store.Transaction().CreateTransaction(s.ctx, tx))
	}

	history, err := s.store.Transaction().ListRecent(s.ctx, n, 5)
	s.Require().NoError(err)
	s.Require().Len(history, 5)
	s.Equal(domain.TransactionTypeTransfer, history[0].Type)
	s.Require().NotNil(history[0].TargetAccountNumber)
	s.Equal(target, *history[0].TargetAccountNumber)
	for i, tx := range history {
		s.True(tx.Amount.Equal(decimal.NewFromInt(int64(7-i))))
	}
}

func (s *RepositoryTestSuite) TestConcurrentWithdrawalsUseRowLocks() {
	const n int64 = 123_456_789_012
	s.createAccount(n, "100")
	txs := service.NewTransactionService(s.store, domain.DefaultPolicy(), s.logger)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := txs.Withdraw(s.ctx, n, decimal.NewFromInt(100)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, succeeded)
	account, err := s.store.Account().GetAccount(s.ctx, n)
	s.Require().NoError(err)
	s.True(account.Balance.IsZero())
}

func (s *RepositoryTestSuite) TestOppositeTransfersDoNotDeadlock() {
	const a, b int64 = 123_456_789_012, 210_987_654_321
	s.createAccount(a, "1000")
	s.createAccount(b, "1000")
	txs := service.NewTransactionService(s.store, domain.DefaultPolicy(), s.logger)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := txs.Transfer(s.ctx, a, b, decimal.NewFromInt(10))
			s.NoError(err)
		}()
		go func() {
			defer wg.Done()
			_, err := txs.Transfer(s.ctx, b, a, decimal.NewFromInt(10))
			s.NoError(err)
		}()
	}
	wg.Wait()

	for _, n := range []int64{a, b} {
		account, err := s.store.Account().GetAccount(s.ctx, n)
		s.Require().NoError(err)
		s.True(account.Balance.Equal(decimal.NewFromInt(1000)))
	}
}
