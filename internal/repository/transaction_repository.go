package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, account_number, transaction_type, amount, target_account_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	// Handle optional target account
	var target interface{}
	if tx.TargetAccountNumber != nil {
		target = *tx.TargetAccountNumber
	}

	_, err := r.db.ExecContext(ctx,
		query,
		tx.ID,
		tx.AccountNumber,
		string(tx.Type),
		tx.Amount.String(),
		target,
		tx.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create transaction",
			"account_number", tx.AccountNumber,
			"type", tx.Type,
			"amount", tx.Amount,
			"error", err)
		return errors.NewStoreError(err)
	}

	r.logger.Info("Transaction recorded", "transaction_id", tx.ID, "type", tx.Type)
	return nil
}

func (r *transactionRepository) ListRecent(ctx context.Context, accountNumber int64, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT id, account_number, transaction_type, amount, target_account_number, created_at
		FROM transactions
		WHERE account_number = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, accountNumber, limit)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_number", accountNumber, "error", err)
		return nil, errors.NewStoreError(err)
	}
	defer rows.Close()

	history := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		var transaction domain.Transaction
		var txType, amountStr string
		var target sql.NullInt64

		if err := rows.Scan(
			&transaction.ID,
			&transaction.AccountNumber,
			&txType,
			&amountStr,
			&target,
			&transaction.CreatedAt,
		); err != nil {
			return nil, errors.NewStoreError(err)
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, errors.NewStoreError(err)
		}
		transaction.Amount = amount
		transaction.Type = domain.TransactionType(txType)
		if target.Valid {
			n := target.Int64
			transaction.TargetAccountNumber = &n
		}

		history = append(history, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError(err)
	}

	return history, nil
}
