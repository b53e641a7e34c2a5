package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"account-ledger/internal/auth"
	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code      string  `json:"code"`
	Message   string  `json:"message"`
	Details   string  `json:"details,omitempty"`
	Balance   *string `json:"balance,omitempty"`
	Requested *string `json:"requested,omitempty"`
	Remaining *string `json:"remaining,omitempty"`
	Limit     *string `json:"limit,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, err error) {
	appErr := errors.AsAppError(err)
	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:      string(appErr.Code),
		Message:   appErr.Message,
		Details:   appErr.Details,
		Balance:   money(appErr.Balance),
		Requested: money(appErr.Requested),
		Remaining: money(appErr.Remaining),
		Limit:     money(appErr.Limit),
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

func money(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(domain.AmountScale)
	return &s
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}
	return nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.NewInvalidAmountError("invalid amount format").WithDetails(err.Error())
	}
	return amount, nil
}

func parseAccountNumber(raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || !domain.IsValidAccountNumber(n) {
		return 0, errors.NewValidationError("account number must be 12 digits")
	}
	return n, nil
}

// ownedAccount returns the account number in the path after checking that the
// session was issued for it.
func ownedAccount(r *http.Request) (int64, error) {
	n, err := parseAccountNumber(mux.Vars(r)["account_number"])
	if err != nil {
		return 0, err
	}
	session, ok := auth.FromContext(r.Context())
	if !ok {
		return 0, errors.ErrUnauthorized
	}
	if session != n {
		return 0, errors.ErrForbidden
	}
	return n, nil
}

type BalanceResponse struct {
	AccountNumber int64  `json:"account_number"`
	Balance       string `json:"balance"`
}

func balanceResponse(n int64, balance decimal.Decimal) BalanceResponse {
	return BalanceResponse{AccountNumber: n, Balance: balance.StringFixed(domain.AmountScale)}
}
