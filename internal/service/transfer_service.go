package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
	"bank-cards/internal/policy"
)

// MaxTransferAmount bounds a single transfer.
var MaxTransferAmount = decimal.New(1, 12)

type TransferService struct {
	store  domain.Store
	cipher CardCipher
	locks  *CardLocks
	logger *slog.Logger
}

func NewTransferService(store domain.Store, cipher CardCipher, locks *CardLocks, logger *slog.Logger) *TransferService {
	if locks == nil {
		locks = NewCardLocks()
	}
	return &TransferService{
		store:  store,
		cipher: cipher,
		locks:  locks,
		logger: logger,
	}
}

// Transfer moves req.Amount from one card of p to another. The two balance
// updates commit together or not at all.
func (s *TransferService) Transfer(ctx context.Context, p domain.Principal, req domain.TransferRequest) (*domain.TransferConfirmation, error) {
	transferID := uuid.New()
	logger := s.logger.With(
		"transfer_id", transferID,
		"user_id", p.UserID,
		"from_card_id", req.FromCardID,
		"to_card_id", req.ToCardID,
		"amount", req.Amount,
	)
	logger.Info("Processing transfer")

	if err := validateTransfer(req); err != nil {
		logger.Warn("Transfer rejected", "error", err)
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, req.FromCardID, req.ToCardID)
	if err != nil {
		logger.Warn("Transfer cancelled while waiting for card locks", "error", err)
		return nil, err
	}
	defer release()

	confirmation := &domain.TransferConfirmation{
		ID:         transferID,
		FromCardID: req.FromCardID,
		ToCardID:   req.ToCardID,
		Amount:     req.Amount,
	}

	err = s.store.WithTransaction(ctx, func(tx domain.Store) error {
		from, to, err := loadPair(ctx, tx.Cards(), req.FromCardID, req.ToCardID)
		if err != nil {
			return err
		}

		if err := policy.RequireTransfer(p, from, to); err != nil {
			return err
		}

		if from.IsBlocked() || to.IsBlocked() {
			return errors.ErrCardBlocked
		}

		if from.Balance.LessThan(req.Amount) {
			return errors.ErrInsufficientFunds
		}

		confirmation.FromMasked, err = s.cipher.MaskEncrypted(from.CardNumberEncrypted)
		if err != nil {
			return err
		}
		confirmation.ToMasked, err = s.cipher.MaskEncrypted(to.CardNumberEncrypted)
		if err != nil {
			return err
		}

		from.Balance = from.Balance.Sub(req.Amount)
		to.Balance = to.Balance.Add(req.Amount)

		if err := tx.Cards().SaveCard(ctx, from); err != nil {
			return err
		}
		return tx.Cards().SaveCard(ctx, to)
	})
	if err != nil {
		logger.Warn("Transfer failed", "error", err)
		return nil, err
	}

	confirmation.CompletedAt = time.Now().UTC()
	logger.Info("Transfer completed successfully")
	return confirmation, nil
}

// loadPair reads both cards in ascending id order, matching the lock order
// taken by the database.
func loadPair(ctx context.Context, cards domain.CardRepository, fromID, toID int64) (from, to *domain.Card, err error) {
	firstID, secondID := fromID, toID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	first, err := cards.GetCardForUpdate(ctx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := cards.GetCardForUpdate(ctx, secondID)
	if err != nil {
		return nil, nil, err
	}

	if first.ID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

func validateTransfer(req domain.TransferRequest) error {
	if !req.Amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return errors.ErrInvalidAmount.WithDetails("at most two decimal places are allowed")
	}
	if req.Amount.GreaterThan(MaxTransferAmount) {
		return errors.ErrInvalidAmount.WithDetails("amount exceeds maximum transfer limit")
	}
	if err := validateCardID(req.FromCardID); err != nil {
		return err
	}
	if err := validateCardID(req.ToCardID); err != nil {
		return err
	}
	if req.FromCardID == req.ToCardID {
		return errors.ErrSameCardTransfer
	}
	return nil
}
