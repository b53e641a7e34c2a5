package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-ledger/internal/allocator"
	"account-ledger/internal/credential"
	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

const createAccountAttempts = 3

type AccountService struct {
	store       domain.Store
	hasher      credential.Hasher
	allocator   *allocator.Allocator
	policy      domain.Policy
	logger      *slog.Logger
	dummyDigest string
}

func NewAccountService(
	store domain.Store,
	hasher credential.Hasher,
	alloc *allocator.Allocator,
	policy domain.Policy,
	logger *slog.Logger,
) *AccountService {
	// Verified against when the account does not exist, so that path costs
	// about as much as a wrong PIN. An empty digest would make that path fast.
	dummy, err := hasher.Hash(strings.Repeat("0", policy.PinLength))
	if err != nil {
		logger.Error("Failed to prepare login digest", "error", err)
		panic(fmt.Sprintf("service: hashing login dummy digest: %v", err))
	}

	return &AccountService{
		store:       store,
		hasher:      hasher,
		allocator:   alloc,
		policy:      policy,
		logger:      logger,
		dummyDigest: dummy,
	}
}

// CreateAccount registers a user and opens a zero-balance account for it in a
// single unit of work, returning the new account number.
func (s *AccountService) CreateAccount(ctx context.Context, name, pin string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.NewValidationError("name must not be empty")
	}
	if !s.validPin(pin) {
		return 0, errors.NewAppErrorf(errors.ValidationError, "PIN must be exactly %d digits", s.policy.PinLength)
	}

	pinHash, err := s.hasher.Hash(pin)
	if err != nil {
		s.logger.Error("Failed to hash PIN", "error", err)
		return 0, errors.NewAppError(errors.InternalError, "failed to secure PIN")
	}

	for attempt := 1; ; attempt++ {
		number, err := s.createAccount(ctx, name, pinHash)
		if err == nil {
			s.logger.Info("Account opened", "account_number", number)
			return number, nil
		}
		// Another writer took the number between the existence check and the insert.
		if errors.Is(err, errors.ErrDuplicateAccount) && attempt < createAccountAttempts {
			s.logger.Warn("Retrying account creation after duplicate number", "attempt", attempt)
			continue
		}
		if errors.Is(err, errors.ErrDuplicateAccount) {
			return 0, errors.ErrAllocationExhausted
		}
		return 0, err
	}
}

func (s *AccountService) createAccount(ctx context.Context, name, pinHash string) (int64, error) {
	var number int64
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		user := &domain.User{
			ID:        uuid.New(),
			Name:      name,
			PinHash:   pinHash,
			CreatedAt: time.Now(),
		}
		if err := tx.User().CreateUser(ctx, user); err != nil {
			return err
		}

		n, err := s.allocator.Allocate(ctx, tx.Account())
		if err != nil {
			return err
		}

		account := &domain.Account{
			Number:         n,
			UserID:         user.ID,
			Balance:        decimal.Zero,
			DailyWithdrawn: decimal.Zero,
		}
		if err := tx.Account().CreateAccount(ctx, account); err != nil {
			return err
		}

		number = n
		return nil
	})
	return number, err
}

func (s *AccountService) validPin(pin string) bool {
	if len(pin) != s.policy.PinLength {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Login checks pin against the stored digest. Unknown accounts and wrong PINs
// fail identically.
func (s *AccountService) Login(ctx context.Context, accountNumber int64, pin string) (*domain.AccountView, error) {
	view, err := s.store.Account().GetAccountView(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, errors.ErrAccountNotFound) {
			s.hasher.Verify(pin, s.dummyDigest)
			s.logger.Warn("Login failed")
			return nil, errors.ErrAuthFailed
		}
		return nil, err
	}

	if !s.hasher.Verify(pin, view.PinHash) {
		s.logger.Warn("Login failed")
		return nil, errors.ErrAuthFailed
	}

	s.logger.Info("Login succeeded", "account_number", accountNumber)
	return view, nil
}

func (s *AccountService) GetBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error) {
	account, err := s.store.Account().GetAccount(ctx, accountNumber)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}
