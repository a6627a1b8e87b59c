package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
)

const userColumns = `id, username, password_hash, first_name, last_name, middle_name, enabled, roles, created_at`

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
		INSERT INTO users (username, password_hash, first_name, last_name, middle_name, enabled, roles, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		user.Username,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.MiddleName,
		user.Enabled,
		pq.Array(user.Roles.Strings()),
		now,
	).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			r.logger.Warn("Duplicate user registration attempt", "username", user.Username)
			return errors.ErrDuplicateUser
		}
		r.logger.Error("Failed to create user", "username", user.Username, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create user").WithDetails(err.Error())
	}

	user.CreatedAt = now
	r.logger.Info("User created successfully", "user_id", user.ID)
	return nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return r.scanUser(r.db.QueryRowContext(ctx, query, id), "user_id", id)
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	return r.scanUser(r.db.QueryRowContext(ctx, query, username), "username", username)
}

func (r *userRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		r.logger.Error("Failed to list users", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list users").WithDetails(err.Error())
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan user").WithDetails(err.Error())
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list users").WithDetails(err.Error())
	}
	return users, nil
}

func (r *userRepository) DeleteUser(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete user", "user_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete user").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrUserNotFound
	}

	r.logger.Info("User deleted", "user_id", id)
	return nil
}

func (r *userRepository) scanUser(row *sql.Row, key string, value interface{}) (*domain.User, error) {
	user, err := scanUserRow(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrUserNotFound
		}
		r.logger.Error("Failed to get user", key, value, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get user").WithDetails(err.Error())
	}
	return user, nil
}

func scanUserRow(row rowScanner) (*domain.User, error) {
	var user domain.User
	var roles []string

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.MiddleName,
		&user.Enabled,
		pq.Array(&roles),
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	set, err := domain.ParseRoleSet(roles)
	if err != nil {
		return nil, err
	}
	user.Roles = set
	return &user, nil
}
