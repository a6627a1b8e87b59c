package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
	"bank-cards/internal/policy"
	"bank-cards/internal/vault"
)

type CardService struct {
	store  domain.Store
	cipher CardCipher
	locks  *CardLocks
	logger *slog.Logger
}

// NewCardService builds a CardService. locks must be the set shared with the
// TransferService so that status changes and balance moves on one card never
// interleave; nil gives the service a private set.
func NewCardService(store domain.Store, cipher CardCipher, locks *CardLocks, logger *slog.Logger) *CardService {
	if locks == nil {
		locks = NewCardLocks()
	}
	return &CardService{
		store:  store,
		cipher: cipher,
		locks:  locks,
		logger: logger,
	}
}

type CreateCardRequest struct {
	UserID      int64
	CardNumber  string
	OwnerName   string
	ExpiryMonth int
	ExpiryYear  int
}

const (
	minExpiryYear = 2000
	maxExpiryYear = 9999
)

func (r CreateCardRequest) validate() error {
	if r.UserID <= 0 {
		return errors.NewAppError(errors.InvalidInput, "user_id must be positive")
	}
	if len(vault.Digits(r.CardNumber)) < 4 {
		return errors.NewAppError(errors.InvalidInput, "card_number must contain at least four digits")
	}
	if strings.TrimSpace(r.OwnerName) == "" {
		return errors.NewAppError(errors.InvalidInput, "owner_name is required")
	}
	if r.ExpiryMonth < 1 || r.ExpiryMonth > 12 {
		return errors.NewAppError(errors.InvalidInput, "expiry_month must be between 1 and 12")
	}
	if r.ExpiryYear < minExpiryYear || r.ExpiryYear > maxExpiryYear {
		return errors.NewAppErrorf(errors.InvalidInput, "expiry_year must be between %d and %d", minExpiryYear, maxExpiryYear)
	}
	return nil
}

// CreateCard issues a new ACTIVE card with zero balance. Only administrators
// may create cards. The plaintext number is encrypted before it reaches the
// store and is otherwise only used to build the masked view.
func (s *CardService) CreateCard(ctx context.Context, p domain.Principal, req CreateCardRequest) (*CardView, error) {
	if err := policy.RequireAdmin(p); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	s.logger.Info("Creating card", "user_id", req.UserID, "admin_id", p.UserID)

	if _, err := s.store.Users().GetUserByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	encrypted, err := s.cipher.Encrypt(req.CardNumber)
	if err != nil {
		s.logger.Error("Failed to encrypt card number", "user_id", req.UserID, "error", err)
		return nil, err
	}

	card := &domain.Card{
		CardNumberEncrypted: encrypted,
		OwnerName:           strings.TrimSpace(req.OwnerName),
		ExpiryMonth:         req.ExpiryMonth,
		ExpiryYear:          req.ExpiryYear,
		Status:              domain.CardStatusActive,
		Balance:             decimal.Zero,
		UserID:              req.UserID,
	}
	if err := s.store.Cards().CreateCard(ctx, card); err != nil {
		return nil, err
	}

	s.logger.Info("Card created successfully", "card_id", card.ID, "user_id", card.UserID)
	return newCardView(card, vault.MaskCardNumber(req.CardNumber)), nil
}

func (s *CardService) GetCard(ctx context.Context, p domain.Principal, id int64) (*CardView, error) {
	if err := validateCardID(id); err != nil {
		return nil, err
	}

	card, err := s.store.Cards().GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(p, card) {
		return nil, errors.ErrForbidden.WithDetails("card belongs to another user")
	}
	return s.view(card)
}

// ListMyCards pages through the cards owned by p, ordered by id.
func (s *CardService) ListMyCards(ctx context.Context, p domain.Principal, page domain.Page) (*CardPage, error) {
	if !p.Authenticated() {
		return nil, errors.ErrUnauthorized
	}
	page, err := validatePage(page)
	if err != nil {
		return nil, err
	}

	cards, total, err := s.store.Cards().ListCardsByOwner(ctx, p.UserID, page)
	if err != nil {
		return nil, err
	}
	return s.page(cards, total, page)
}

func (s *CardService) ListAllCards(ctx context.Context, p domain.Principal, page domain.Page) (*CardPage, error) {
	if err := policy.RequireAdmin(p); err != nil {
		return nil, err
	}
	page, err := validatePage(page)
	if err != nil {
		return nil, err
	}

	cards, total, err := s.store.Cards().ListCards(ctx, page)
	if err != nil {
		return nil, err
	}
	return s.page(cards, total, page)
}

// BlockCard moves a card to BLOCKED. Blocking an already blocked card is a
// no-op.
func (s *CardService) BlockCard(ctx context.Context, p domain.Principal, id int64) (*CardView, error) {
	if err := validateCardID(id); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	var blocked *domain.Card
	err = s.store.WithTransaction(ctx, func(tx domain.Store) error {
		card, err := tx.Cards().GetCardForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := policy.RequireOwnershipOrAdmin(p, card); err != nil {
			return err
		}
		blocked = card
		if card.IsBlocked() {
			return nil
		}
		card.Block()
		return tx.Cards().SaveCard(ctx, card)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Card blocked", "card_id", id, "user_id", p.UserID)
	return s.view(blocked)
}

func (s *CardService) DeleteCard(ctx context.Context, p domain.Principal, id int64) error {
	if err := policy.RequireAdmin(p); err != nil {
		return err
	}
	if err := validateCardID(id); err != nil {
		return err
	}

	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	return s.store.Cards().DeleteCard(ctx, id)
}

func (s *CardService) view(card *domain.Card) (*CardView, error) {
	masked, err := s.cipher.MaskEncrypted(card.CardNumberEncrypted)
	if err != nil {
		s.logger.Error("Failed to mask card number", "card_id", card.ID, "error", err)
		return nil, err
	}
	return newCardView(card, masked), nil
}

func (s *CardService) page(cards []*domain.Card, total int, page domain.Page) (*CardPage, error) {
	items := make([]*CardView, 0, len(cards))
	for _, card := range cards {
		v, err := s.view(card)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return &CardPage{Items: items, Total: total, Offset: page.Offset, Limit: page.Limit}, nil
}
