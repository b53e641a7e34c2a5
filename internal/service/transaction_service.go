package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

type TransactionService struct {
	store  domain.Store
	policy domain.Policy
	logger *slog.Logger
	now    func() time.Time
}

type TransactionOption func(*TransactionService)

// WithClock replaces time.Now, which decides record timestamps and the
// calendar day used for the daily limit.
func WithClock(now func() time.Time) TransactionOption {
	return func(s *TransactionService) {
		s.now = now
	}
}

func NewTransactionService(
	store domain.Store,
	policy domain.Policy,
	logger *slog.Logger,
	opts ...TransactionOption,
) *TransactionService {
	s := &TransactionService{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TransactionService) Deposit(ctx context.Context, accountNumber int64, amount decimal.Decimal) (decimal.Decimal, error) {
	s.logger.Info("Processing deposit", "account_number", accountNumber, "amount", amount)

	if err := validateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		account, err := tx.Account().GetAccountForUpdate(ctx, accountNumber)
		if err != nil {
			return err
		}

		account.Balance = account.Balance.Add(amount)
		if err := tx.Account().UpdateAccount(ctx, account); err != nil {
			return err
		}

		if err := tx.Transaction().CreateTransaction(ctx, &domain.Transaction{
			AccountNumber: accountNumber,
			Type:          domain.TransactionTypeDeposit,
			Amount:        amount,
			CreatedAt:     s.now(),
		}); err != nil {
			return err
		}

		balance = account.Balance
		return nil
	})
	if err != nil {
		s.logger.Warn("Deposit failed", "account_number", accountNumber, "error", err)
		return decimal.Zero, err
	}

	s.logger.Info("Deposit completed", "account_number", accountNumber, "balance", balance)
	return balance, nil
}

// Withdraw debits amount plus any fee. The funds check covers amount and fee,
// the daily limit counts amount only.
func (s *TransactionService) Withdraw(ctx context.Context, accountNumber int64, amount decimal.Decimal) (decimal.Decimal, error) {
	s.logger.Info("Processing withdrawal", "account_number", accountNumber, "amount", amount)

	if err := validateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	fee := s.policy.WithdrawalFee(amount)
	total := amount.Add(fee)

	var balance decimal.Decimal
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		account, err := tx.Account().GetAccountForUpdate(ctx, accountNumber)
		if err != nil {
			return err
		}

		now := s.now()
		today := s.policy.Today(now)
		baseline := account.DailyBaseline(today)

		if account.Balance.LessThan(total) {
			return errors.NewInsufficientFundsError(account.Balance, total)
		}

		if baseline.Add(amount).GreaterThan(s.policy.DailyLimit) {
			remaining := decimal.Max(s.policy.DailyLimit.Sub(baseline), decimal.Zero)
			return errors.NewTransactionLimitError(remaining, s.policy.DailyLimit)
		}

		account.Balance = account.Balance.Sub(total)
		account.DailyWithdrawn = baseline.Add(amount)
		account.LastWithdrawalDate = &today
		if err := tx.Account().UpdateAccount(ctx, account); err != nil {
			return err
		}

		if err := tx.Transaction().CreateTransaction(ctx, &domain.Transaction{
			AccountNumber: accountNumber,
			Type:          domain.TransactionTypeWithdrawal,
			Amount:        amount,
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		if fee.IsPositive() {
			if err := tx.Transaction().CreateTransaction(ctx, &domain.Transaction{
				AccountNumber: accountNumber,
				Type:          domain.TransactionTypeFee,
				Amount:        fee,
				CreatedAt:     now,
			}); err != nil {
				return err
			}
		}

		balance = account.Balance
		return nil
	})
	if err != nil {
		s.logger.Warn("Withdrawal failed", "account_number", accountNumber, "error", err)
		return decimal.Zero, err
	}

	s.logger.Info("Withdrawal completed", "account_number", accountNumber, "fee", fee, "balance", balance)
	return balance, nil
}

// Transfer moves amount from one account to another and returns the sender's
// new balance. Transfers carry no fee and do not count toward the daily limit.
func (s *TransactionService) Transfer(ctx context.Context, from, to int64, amount decimal.Decimal) (decimal.Decimal, error) {
	s.logger.Info("Processing transfer", "from_account_number", from, "to_account_number", to, "amount", amount)

	if err := validateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	if from == to {
		return decimal.Zero, errors.NewInvalidAmountError("cannot transfer to the same account")
	}

	var balance decimal.Decimal
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		// Lock in ascending account-number order so concurrent opposite
		// transfers cannot deadlock.
		first, second := from, to
		if second < first {
			first, second = second, first
		}

		locked := make(map[int64]*domain.Account, 2)
		for _, n := range []int64{first, second} {
			account, err := tx.Account().GetAccountForUpdate(ctx, n)
			if err != nil {
				if n == to && errors.Is(err, errors.ErrAccountNotFound) {
					return errors.NewInvalidAmountError("target account does not exist")
				}
				return err
			}
			locked[n] = account
		}

		sender, receiver := locked[from], locked[to]
		if sender.Balance.LessThan(amount) {
			return errors.NewInsufficientFundsError(sender.Balance, amount)
		}

		sender.Balance = sender.Balance.Sub(amount)
		receiver.Balance = receiver.Balance.Add(amount)

		if err := tx.Account().UpdateAccount(ctx, sender); err != nil {
			return err
		}
		if err := tx.Account().UpdateAccount(ctx, receiver); err != nil {
			return err
		}

		target := to
		if err := tx.Transaction().CreateTransaction(ctx, &domain.Transaction{
			AccountNumber:       from,
			Type:                domain.TransactionTypeTransfer,
			Amount:              amount,
			TargetAccountNumber: &target,
			CreatedAt:           s.now(),
		}); err != nil {
			return err
		}

		balance = sender.Balance
		return nil
	})
	if err != nil {
		s.logger.Warn("Transfer failed", "from_account_number", from, "to_account_number", to, "error", err)
		return decimal.Zero, err
	}

	s.logger.Info("Transfer completed", "from_account_number", from, "to_account_number", to, "balance", balance)
	return balance, nil
}

// GetHistory returns the most recent records for the account, newest first.
func (s *TransactionService) GetHistory(ctx context.Context, accountNumber int64) ([]domain.Transaction, error) {
	exists, err := s.store.Account().AccountExists(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.ErrAccountNotFound
	}

	return s.store.Transaction().ListRecent(ctx, accountNumber, s.policy.HistoryLimit)
}
