package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
)

const cardColumns = `id, card_number_encrypted, owner_name, expiry_month, expiry_year, status, balance, user_id, created_at, updated_at`

type cardRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewCardRepository(db SQLExecutor, logger *slog.Logger) domain.CardRepository {
	return &cardRepository{
		db:     db,
		logger: logger,
	}
}

func (r *cardRepository) CreateCard(ctx context.Context, card *domain.Card) error {
	query := `
		INSERT INTO cards (card_number_encrypted, owner_name, expiry_month, expiry_year, status, balance, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx,
		query,
		card.CardNumberEncrypted,
		card.OwnerName,
		card.ExpiryMonth,
		card.ExpiryYear,
		string(card.Status),
		card.Balance.StringFixed(2),
		card.UserID,
		now,
		now,
	).Scan(&card.ID)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return errors.ErrUserNotFound
		}
		r.logger.Error("Failed to create card", "user_id", card.UserID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create card").WithDetails(err.Error())
	}

	card.CreatedAt = now
	card.UpdatedAt = now
	r.logger.Info("Card created successfully", "card_id", card.ID, "user_id", card.UserID)
	return nil
}

func (r *cardRepository) GetCard(ctx context.Context, id int64) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	return r.scanCard(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *cardRepository) GetCardForUpdate(ctx context.Context, id int64) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 FOR UPDATE`

	return r.scanCard(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *cardRepository) ListCardsByOwner(ctx context.Context, userID int64, page domain.Page) ([]*domain.Card, int, error) {
	page = page.Normalize()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE user_id = $1`, userID).Scan(&total); err != nil {
		r.logger.Error("Failed to count cards", "user_id", userID, "error", err)
		return nil, 0, errors.NewAppError(errors.InternalError, "failed to list cards").WithDetails(err.Error())
	}

	query := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = $1 ORDER BY id ASC LIMIT $2 OFFSET $3`
	cards, err := r.queryCards(ctx, query, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

func (r *cardRepository) ListCards(ctx context.Context, page domain.Page) ([]*domain.Card, int, error) {
	page = page.Normalize()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&total); err != nil {
		r.logger.Error("Failed to count cards", "error", err)
		return nil, 0, errors.NewAppError(errors.InternalError, "failed to list cards").WithDetails(err.Error())
	}

	query := `SELECT ` + cardColumns + ` FROM cards ORDER BY id ASC LIMIT $1 OFFSET $2`
	cards, err := r.queryCards(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// SaveCard overwrites the mutable state of an existing card.
func (r *cardRepository) SaveCard(ctx context.Context, card *domain.Card) error {
	query := `
		UPDATE cards
		SET owner_name = $1, expiry_month = $2, expiry_year = $3, status = $4, balance = $5, updated_at = $6
		WHERE id = $7
	`

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		card.OwnerName,
		card.ExpiryMonth,
		card.ExpiryYear,
		string(card.Status),
		card.Balance.StringFixed(2),
		now,
		card.ID,
	)
	if err != nil {
		r.logger.Error("Failed to save card", "card_id", card.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to save card").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		r.logger.Warn("No card found to save", "card_id", card.ID)
		return errors.ErrCardNotFound
	}

	card.UpdatedAt = now
	r.logger.Debug("Card saved", "card_id", card.ID, "status", card.Status)
	return nil
}

func (r *cardRepository) DeleteCard(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete card", "card_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete card").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		r.logger.Warn("No card found to delete", "card_id", id)
		return errors.ErrCardNotFound
	}

	r.logger.Info("Card deleted", "card_id", id)
	return nil
}

func (r *cardRepository) queryCards(ctx context.Context, query string, args ...interface{}) ([]*domain.Card, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query cards", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list cards").WithDetails(err.Error())
	}
	defer rows.Close()

	cards := make([]*domain.Card, 0)
	for rows.Next() {
		card, err := r.scanRow(rows)
		if err != nil {
			var appErr *errors.AppError
			if stderrors.As(err, &appErr) {
				return nil, err
			}
			return nil, errors.NewAppError(errors.InternalError, "failed to scan card").WithDetails(err.Error())
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list cards").WithDetails(err.Error())
	}
	return cards, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *cardRepository) scanCard(row *sql.Row, id int64) (*domain.Card, error) {
	card, err := r.scanRow(row)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return nil, err
		}
		if stderrors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Card not found", "card_id", id)
			return nil, errors.ErrCardNotFound
		}
		r.logger.Error("Failed to get card", "card_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get card").WithDetails(err.Error())
	}
	return card, nil
}

func (r *cardRepository) scanRow(row rowScanner) (*domain.Card, error) {
	var card domain.Card
	var status, balanceStr string

	err := row.Scan(
		&card.ID,
		&card.CardNumberEncrypted,
		&card.OwnerName,
		&card.ExpiryMonth,
		&card.ExpiryYear,
		&status,
		&balanceStr,
		&card.UserID,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error("Failed to parse balance", "card_id", card.ID, "balance_str", balanceStr, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
	}

	card.Status = domain.CardStatus(status)
	card.Balance = balance
	return &card, nil
}
