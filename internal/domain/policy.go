package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy holds the bank rules applied by the ledger services.
type Policy struct {
	// DailyLimit caps the sum of withdrawal amounts (fees excluded) per calendar day.
	DailyLimit decimal.Decimal
	// Fee is charged on withdrawals strictly below FeeThreshold.
	Fee          decimal.Decimal
	FeeThreshold decimal.Decimal
	// PinLength is the exact number of digits a PIN must have.
	PinLength             int
	HistoryLimit          int
	MaxAllocationAttempts int
	// Location decides where calendar days begin for the daily limit.
	Location *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		DailyLimit:            decimal.RequireFromString("5000.00"),
		Fee:                   decimal.RequireFromString("2.00"),
		FeeThreshold:          decimal.RequireFromString("100.00"),
		PinLength:             4,
		HistoryLimit:          5,
		MaxAllocationAttempts: 10,
		Location:              time.Local,
	}
}

// WithdrawalFee returns the fee owed for withdrawing amount.
func (p Policy) WithdrawalFee(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThan(p.FeeThreshold) {
		return p.Fee
	}
	return decimal.Zero
}

// Today returns the civil date of now in the policy's location.
func (p Policy) Today(now time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	return CivilDate(now.In(loc))
}
