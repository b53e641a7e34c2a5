package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MinAccountNumber and MaxAccountNumber bound the 12-digit account number space.
	MinAccountNumber int64 = 100_000_000_000
	MaxAccountNumber int64 = 999_999_999_999
)

type Account struct {
	Number             int64           `json:"account_number"`
	UserID             uuid.UUID       `json:"user_id"`
	Balance            decimal.Decimal `json:"balance"`
	DailyWithdrawn     decimal.Decimal `json:"daily_withdrawn_amount"`
	LastWithdrawalDate *time.Time      `json:"last_withdrawal_date,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// DailyBaseline returns the amount already withdrawn on today's civil date.
// A last withdrawal on any other date means the allowance has rolled over.
func (a *Account) DailyBaseline(today time.Time) decimal.Decimal {
	if a.LastWithdrawalDate == nil || !CivilDate(*a.LastWithdrawalDate).Equal(CivilDate(today)) {
		return decimal.Zero
	}
	return a.DailyWithdrawn
}

// AccountView is what a successful login hands back to the caller.
type AccountView struct {
	Name          string          `json:"name"`
	AccountNumber int64           `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	PinHash       string          `json:"-"`
}

// IsValidAccountNumber reports whether n lies in the 12-digit range.
func IsValidAccountNumber(n int64) bool {
	return n >= MinAccountNumber && n <= MaxAccountNumber
}

// CivilDate truncates t to midnight UTC of its own calendar date.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, number int64) (*Account, error)
	GetAccountForUpdate(ctx context.Context, number int64) (*Account, error)
	GetAccountView(ctx context.Context, number int64) (*AccountView, error)
	AccountExists(ctx context.Context, number int64) (bool, error)
	UpdateAccount(ctx context.Context, account *Account) error
}

// AmountScale is the number of decimal places money is stored with.
const AmountScale int32 = 2
