package handler

import (
	"encoding/json"
	"net/http"

	"account-ledger/internal/auth"
	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
	"account-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
	tokens         *auth.Tokens
}

func NewAccountHandler(accountService *service.AccountService, tokens *auth.Tokens) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		tokens:         tokens,
	}
}

type CreateAccountRequest struct {
	Name string `json:"name"`
	Pin  string `json:"pin"`
}

type CreateAccountResponse struct {
	AccountNumber int64 `json:"account_number"`
}

type LoginRequest struct {
	AccountNumber json.Number `json:"account_number"`
	Pin           string      `json:"pin"`
}

type AccountResponse struct {
	Name          string `json:"name"`
	AccountNumber int64  `json:"account_number"`
	Balance       string `json:"balance"`
}

type LoginResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	number, err := h.accountService.CreateAccount(r.Context(), req.Name, req.Pin)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateAccountResponse{AccountNumber: number})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	// A malformed number is reported like any other failed login.
	number, err := req.AccountNumber.Int64()
	if err != nil {
		writeError(w, errors.ErrAuthFailed)
		return
	}

	view, err := h.accountService.Login(r.Context(), number, req.Pin)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.Issue(view.AccountNumber)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InternalError, "failed to issue session token").Wrap(err))
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		Account: AccountResponse{
			Name:          view.Name,
			AccountNumber: view.AccountNumber,
			Balance:       view.Balance.StringFixed(domain.AmountScale),
		},
	})
}

func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	number, err := ownedAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}

	balance, err := h.accountService.GetBalance(r.Context(), number)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse(number, balance))
}
