package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
	inTx     bool
}

var _ domain.Store = (*Store)(nil)

// NewStore creates a new Store instance
func NewStore(db DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

// Cards returns a CardRepository using the current executor
func (s *Store) Cards() domain.CardRepository {
	return NewCardRepository(s.executor, s.logger)
}

// Users returns a UserRepository using the current executor
func (s *Store) Users() domain.UserRepository {
	return NewUserRepository(s.executor, s.logger)
}

// WithTransaction executes fn within a database transaction. Nested calls
// reuse the outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	// Only the root executor can begin transactions
	db, ok := s.executor.(DB)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return errors.NewAppError(errors.InternalError, "failed to begin transaction").WithDetails(err.Error())
	}

	txStore := &Store{
		executor: tx,
		logger:   s.logger,
		inTx:     true,
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return errors.NewAppError(errors.InternalError, "failed to commit transaction").WithDetails(fmt.Sprint(err))
	}
	return nil
}
