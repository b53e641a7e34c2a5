// Package auth issues and verifies the session tokens handed out at login.
package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs an HS256 token whose subject is the account number.
func (t *Tokens) Issue(accountNumber int64) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(accountNumber, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies tokenStr and returns the account number it was issued for.
func (t *Tokens) Parse(tokenStr string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return 0, errors.ErrUnauthorized.Wrap(err)
	}

	accountNumber, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || !domain.IsValidAccountNumber(accountNumber) {
		return 0, errors.ErrUnauthorized.WithDetails("invalid subject")
	}
	return accountNumber, nil
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying the authenticated account number.
func NewContext(ctx context.Context, accountNumber int64) context.Context {
	return context.WithValue(ctx, contextKey{}, accountNumber)
}

func FromContext(ctx context.Context) (int64, bool) {
	n, ok := ctx.Value(contextKey{}).(int64)
	return n, ok
}
