package service

import (
	"github.com/shopspring/decimal"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

// validateAmount rejects non-positive amounts and sub-cent precision.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(domain.AmountScale)) {
		return errors.NewInvalidAmountError("amount must have at most 2 decimal places")
	}
	return nil
}
