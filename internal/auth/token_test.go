package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-ledger/internal/errors"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	tok, err := tokens.Issue(123_456_789_012)
	require.NoError(t, err)

	n, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(123_456_789_012), n)
}

func TestParseRejectsExpired(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	issued := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	tok, err := tokens.Issue(123_456_789_012)
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tokens.Parse(tok)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := NewTokens("secret", time.Hour).Issue(123_456_789_012)
	require.NoError(t, err)

	_, err = NewTokens("other", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestParseRejectsBadSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokens("secret", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := NewTokens("secret", time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	n, ok := FromContext(NewContext(context.Background(), 42))
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)
}
