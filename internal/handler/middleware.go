package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"account-ledger/internal/auth"
	"account-ledger/internal/errors"
)

// RequireSession rejects requests without a valid bearer token and stores the
// token's account number in the request context.
func RequireSession(tokens *auth.Tokens) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				writeError(w, errors.ErrUnauthorized)
				return
			}

			accountNumber, err := tokens.Parse(strings.TrimSpace(token))
			if err != nil {
				writeError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.NewContext(r.Context(), accountNumber)))
		})
	}
}
