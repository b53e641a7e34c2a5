package repository

import (
	"context"
	"log/slog"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

type userRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewUserRepository(db SQLExecutor, logger *slog.Logger) domain.UserRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (user_id, name, pin_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.PinHash, user.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create user", "user_id", user.ID, "error", err)
		return errors.NewStoreError(err)
	}

	r.logger.Info("User created", "user_id", user.ID)
	return nil
}
