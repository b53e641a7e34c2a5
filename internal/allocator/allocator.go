// Package allocator hands out random, collision-free 12-digit account numbers.
package allocator

import (
	"context"
	"log/slog"
	"math/rand"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

// Lookup reports whether an account number is already taken.
type Lookup interface {
	AccountExists(ctx context.Context, number int64) (bool, error)
}

type Allocator struct {
	draw        func() int64
	maxAttempts int
	logger      *slog.Logger
}

type Option func(*Allocator)

// WithDraw replaces the random source. Values outside the 12-digit range are rejected
// as collisions.
func WithDraw(draw func() int64) Option {
	return func(a *Allocator) {
		a.draw = draw
	}
}

func New(maxAttempts int, logger *slog.Logger, opts ...Option) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	a := &Allocator{
		draw:        randomNumber,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func randomNumber() int64 {
	return domain.MinAccountNumber + rand.Int63n(domain.MaxAccountNumber-domain.MinAccountNumber+1)
}

// Allocate draws candidates until one is free or the attempt budget runs out.
func (a *Allocator) Allocate(ctx context.Context, lookup Lookup) (int64, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		candidate := a.draw()
		if !domain.IsValidAccountNumber(candidate) {
			continue
		}

		exists, err := lookup.AccountExists(ctx, candidate)
		if err != nil {
			return 0, err
		}
		if !exists {
			return candidate, nil
		}

		a.logger.Warn("Account number collision", "attempt", attempt)
	}

	a.logger.Error("Account number allocation exhausted", "attempts", a.maxAttempts)
	return 0, errors.ErrAllocationExhausted
}
