package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
	"account-ledger/internal/service"
)

type TransactionHandler struct {
	transactionService *service.TransactionService
}

func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

type TransferRequest struct {
	ToAccountNumber json.Number `json:"to_account_number"`
	Amount          string      `json:"amount"`
}

type TransactionResponse struct {
	ID                  string `json:"id"`
	TransactionType     string `json:"transaction_type"`
	Amount              string `json:"amount"`
	TargetAccountNumber *int64 `json:"target_account_number,omitempty"`
	Timestamp           string `json:"timestamp"`
}

func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	number, req, ok := h.amountRequest(w, r)
	if !ok {
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	balance, err := h.transactionService.Deposit(r.Context(), number, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse(number, balance))
}

func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	number, req, ok := h.amountRequest(w, r)
	if !ok {
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	balance, err := h.transactionService.Withdraw(r.Context(), number, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse(number, balance))
}

func (h *TransactionHandler) amountRequest(w http.ResponseWriter, r *http.Request) (int64, AmountRequest, bool) {
	var req AmountRequest
	number, err := ownedAccount(r)
	if err != nil {
		writeError(w, err)
		return 0, req, false
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return 0, req, false
	}
	return number, req, true
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	from, err := ownedAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	to, err := req.ToAccountNumber.Int64()
	if err != nil {
		writeError(w, errors.NewValidationError("invalid to_account_number"))
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	balance, err := h.transactionService.Transfer(r.Context(), from, to, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse(from, balance))
}

func (h *TransactionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	number, err := ownedAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}

	history, err := h.transactionService.GetHistory(r.Context(), number)
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]TransactionResponse, 0, len(history))
	for _, tx := range history {
		response = append(response, transactionResponse(tx))
	}

	writeJSON(w, http.StatusOK, response)
}

func transactionResponse(tx domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                  tx.ID.String(),
		TransactionType:     string(tx.Type),
		Amount:              tx.Amount.StringFixed(domain.AmountScale),
		TargetAccountNumber: tx.TargetAccountNumber,
		Timestamp:           tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
