package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

type ErrorCode string

const (
	ValidationError        ErrorCode = "validation_error"
	InvalidAmount          ErrorCode = "invalid_amount"
	InsufficientFunds      ErrorCode = "insufficient_funds"
	TransactionLimit       ErrorCode = "transaction_limit_exceeded"
	AuthFailed             ErrorCode = "auth_failed"
	AccountNotFound        ErrorCode = "account_not_found"
	StoreFailure           ErrorCode = "store_error"
	AllocationExhausted    ErrorCode = "allocation_exhausted"
	DuplicateAccount       ErrorCode = "duplicate_account"
	Unauthorized           ErrorCode = "unauthorized"
	Forbidden              ErrorCode = "forbidden"
	InvalidInput           ErrorCode = "invalid_input"
	InternalError          ErrorCode = "internal_error"
	CannotBeginTransaction ErrorCode = "cannot_begin_transaction"
)

// AppError is the single error type returned across package boundaries.
// The optional amount fields carry the context a caller needs to render
// its own message for funds and limit failures.
type AppError struct {
	Code      ErrorCode        `json:"code"`
	Message   string           `json:"message"`
	Details   string           `json:"details,omitempty"`
	Balance   *decimal.Decimal `json:"balance,omitempty"`
	Requested *decimal.Decimal `json:"requested,omitempty"`
	Remaining *decimal.Decimal `json:"remaining,omitempty"`
	Limit     *decimal.Decimal `json:"limit,omitempty"`

	cause error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying driver error for logging. It is never serialized.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches any AppError with the same code, so predefined errors work as sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy so shared sentinels stay untouched.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Wrap returns a copy that remembers cause.
func (e *AppError) Wrap(cause error) *AppError {
	cp := *e
	cp.cause = cause
	return &cp
}

func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ValidationError, InvalidAmount, InvalidInput:
		return http.StatusBadRequest
	case InsufficientFunds, TransactionLimit:
		return http.StatusUnprocessableEntity
	case AuthFailed, Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case AccountNotFound:
		return http.StatusNotFound
	case DuplicateAccount:
		return http.StatusConflict
	case StoreFailure, AllocationExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrValidation             = NewAppError(ValidationError, "invalid input")
	ErrInvalidAmount          = NewAppError(InvalidAmount, "amount must be a positive value")
	ErrInsufficientFunds      = NewAppError(InsufficientFunds, "insufficient funds")
	ErrTransactionLimit       = NewAppError(TransactionLimit, "daily withdrawal limit exceeded")
	ErrAuthFailed             = NewAppError(AuthFailed, "invalid account number or PIN")
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrStore                  = NewAppError(StoreFailure, "storage temporarily unavailable")
	ErrAllocationExhausted    = NewAppError(AllocationExhausted, "could not allocate a unique account number")
	ErrDuplicateAccount       = NewAppError(DuplicateAccount, "account already exists")
	ErrUnauthorized           = NewAppError(Unauthorized, "missing or invalid session token")
	ErrForbidden              = NewAppError(Forbidden, "session does not own this account")
	ErrCannotBeginTransaction = NewAppError(CannotBeginTransaction, "cannot begin transaction on this executor")
)

func NewValidationError(message string) *AppError {
	return NewAppError(ValidationError, message)
}

func NewInvalidAmountError(message string) *AppError {
	return NewAppError(InvalidAmount, message)
}

// NewInsufficientFundsError records the balance seen and the total deduction requested.
func NewInsufficientFundsError(balance, requested decimal.Decimal) *AppError {
	e := NewAppErrorf(InsufficientFunds, "insufficient funds: balance %s, requested %s",
		balance.StringFixed(2), requested.StringFixed(2))
	e.Balance = &balance
	e.Requested = &requested
	return e
}

// NewTransactionLimitError records how much may still be withdrawn today.
func NewTransactionLimitError(remaining, limit decimal.Decimal) *AppError {
	e := NewAppErrorf(TransactionLimit, "daily withdrawal limit of %s exceeded, %s remaining today",
		limit.StringFixed(2), remaining.StringFixed(2))
	e.Remaining = &remaining
	e.Limit = &limit
	return e
}

// NewStoreError hides cause behind a generic message.
func NewStoreError(cause error) *AppError {
	return ErrStore.Wrap(cause)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// From extracts an *AppError from err's chain.
func From(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// AsAppError converts any error to an *AppError, treating unknown errors as internal.
func AsAppError(err error) *AppError {
	if appErr, ok := From(err); ok {
		return appErr
	}
	return NewAppError(InternalError, "an unexpected error occurred").Wrap(err)
}
