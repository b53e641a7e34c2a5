package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
}

// NewStore creates a new Store instance
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

func (s *Store) User() domain.UserRepository {
	return NewUserRepository(s.executor, s.logger)
}

func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

func (s *Store) Transaction() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

func (s *Store) Ping(ctx context.Context) error {
	db, ok := s.executor.(DB)
	if !ok {
		return nil
	}
	if err := db.PingContext(ctx); err != nil {
		return errors.NewStoreError(err)
	}
	return nil
}

// WithTransaction executes fn within a database transaction. Any error from fn,
// or a panic, rolls back every write fn made.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	// Only sql.DB can begin transactions
	db, ok := s.executor.(DB)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return errors.NewStoreError(err)
	}

	txStore := &Store{
		executor: &TxWrapper{Tx: tx},
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return errors.NewStoreError(err)
	}
	return nil
}

var _ domain.Store = (*Store)(nil)
