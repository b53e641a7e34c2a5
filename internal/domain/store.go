package domain

import "context"

// Store groups the repositories behind one unit of work. Repositories obtained
// from the Store passed to fn share fn's transaction.
type Store interface {
	User() UserRepository
	Account() AccountRepository
	Transaction() TransactionRepository
	WithTransaction(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}
