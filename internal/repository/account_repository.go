package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

const uniqueViolation = "23505"

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts
		(account_number, user_id, balance, daily_withdrawn_amount, last_withdrawal_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		query,
		account.Number,
		account.UserID,
		account.Balance.String(),
		account.DailyWithdrawn.String(),
		dateParam(account.LastWithdrawalDate),
		now,
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == uniqueViolation {
				r.logger.Warn("Duplicate account number", "account_number", account.Number)
				return errors.ErrDuplicateAccount
			}
		}
		r.logger.Error("Failed to create account", "account_number", account.Number, "error", err)
		return errors.NewStoreError(err)
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created successfully", "account_number", account.Number)
	return nil
}

func (r *accountRepository) GetAccount(ctx context.Context, number int64) (*domain.Account, error) {
	query := `
		SELECT account_number, user_id, balance, daily_withdrawn_amount, last_withdrawal_date, created_at, updated_at
		FROM accounts WHERE account_number = $1
	`

	return r.scanAccount(ctx, query, number)
}

// GetAccountForUpdate locks the row until the surrounding transaction ends.
func (r *accountRepository) GetAccountForUpdate(ctx context.Context, number int64) (*domain.Account, error) {
	query := `
		SELECT account_number, user_id, balance, daily_withdrawn_amount, last_withdrawal_date, created_at, updated_at
		FROM accounts WHERE account_number = $1 FOR UPDATE
	`

	return r.scanAccount(ctx, query, number)
}

func (r *accountRepository) scanAccount(ctx context.Context, query string, number int64) (*domain.Account, error) {
	var account domain.Account
	var balanceStr, dailyStr string
	var lastDate sql.NullTime

	err := r.db.QueryRowContext(ctx, query, number).Scan(
		&account.Number,
		&account.UserID,
		&balanceStr,
		&dailyStr,
		&lastDate,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "account_number", number)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_number", number, "error", err)
		return nil, errors.NewStoreError(err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error("Failed to parse balance", "account_number", number, "balance_str", balanceStr, "error", err)
		return nil, errors.NewStoreError(err)
	}
	daily, err := decimal.NewFromString(dailyStr)
	if err != nil {
		r.logger.Error("Failed to parse daily amount", "account_number", number, "daily_str", dailyStr, "error", err)
		return nil, errors.NewStoreError(err)
	}

	account.Balance = balance
	account.DailyWithdrawn = daily
	if lastDate.Valid {
		d := domain.CivilDate(lastDate.Time)
		account.LastWithdrawalDate = &d
	}
	return &account, nil
}

func (r *accountRepository) GetAccountView(ctx context.Context, number int64) (*domain.AccountView, error) {
	query := `
		SELECT u.name, a.account_number, a.balance, u.pin_hash
		FROM accounts a
		JOIN users u ON a.user_id = u.user_id
		WHERE a.account_number = $1
	`

	var view domain.AccountView
	var balanceStr string
	err := r.db.QueryRowContext(ctx, query, number).Scan(&view.Name, &view.AccountNumber, &balanceStr, &view.PinHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account view", "account_number", number, "error", err)
		return nil, errors.NewStoreError(err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, errors.NewStoreError(err)
	}
	view.Balance = balance
	return &view, nil
}

func (r *accountRepository) AccountExists(ctx context.Context, number int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`, number,
	).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check account existence", "account_number", number, "error", err)
		return false, errors.NewStoreError(err)
	}
	return exists, nil
}

// UpdateAccount writes balance, daily amount and last withdrawal date in one statement.
func (r *accountRepository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET balance = $1, daily_withdrawn_amount = $2, last_withdrawal_date = $3, updated_at = $4
		WHERE account_number = $5
	`

	now := time.Now()
	result, err := r.db.ExecContext(ctx,
		query,
		account.Balance.String(),
		account.DailyWithdrawn.String(),
		dateParam(account.LastWithdrawalDate),
		now,
		account.Number,
	)
	if err != nil {
		r.logger.Error("Failed to update account", "account_number", account.Number, "error", err)
		return errors.NewStoreError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStoreError(err)
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_number", account.Number)
		return errors.ErrAccountNotFound
	}

	account.UpdatedAt = now
	r.logger.Info("Account updated", "account_number", account.Number, "new_balance", account.Balance)
	return nil
}

// dateParam renders a civil date as YYYY-MM-DD so the session time zone cannot shift it.
func dateParam(d *time.Time) interface{} {
	if d == nil {
		return nil
	}
	return d.Format("2006-01-02")
}
