package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeFee        TransactionType = "FEE"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
)

// Transaction is one append-only ledger record. TargetAccountNumber is set
// only for transfers.
type Transaction struct {
	ID                  uuid.UUID       `json:"id"`
	AccountNumber       int64           `json:"account_number"`
	Type                TransactionType `json:"transaction_type"`
	Amount              decimal.Decimal `json:"amount"`
	TargetAccountNumber *int64          `json:"target_account_number,omitempty"`
	CreatedAt           time.Time       `json:"timestamp"`
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	// ListRecent returns at most limit records for the account, newest first.
	ListRecent(ctx context.Context, accountNumber int64, limit int) ([]Transaction, error)
}
