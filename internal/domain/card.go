package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
)

func (s CardStatus) Valid() bool {
	return s == CardStatusActive || s == CardStatusBlocked
}

// Card is a stored bank card. CardNumberEncrypted is opaque vault output and
// is never serialized.
type Card struct {
	ID                  int64           `json:"id"`
	CardNumberEncrypted string          `json:"-"`
	OwnerName           string          `json:"owner_name"`
	ExpiryMonth         int             `json:"expiry_month"`
	ExpiryYear          int             `json:"expiry_year"`
	Status              CardStatus      `json:"status"`
	Balance             decimal.Decimal `json:"balance"`
	UserID              int64           `json:"user_id"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Block moves the card to BLOCKED. There is no way back.
func (c *Card) Block() {
	c.Status = CardStatusBlocked
}

func (c *Card) IsBlocked() bool {
	return c.Status == CardStatusBlocked
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is an offset/limit window over an id-ordered listing.
type Page struct {
	Offset int
	Limit  int
}

// Normalize applies the default and maximum limit.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

type CardRepository interface {
	GetCard(ctx context.Context, id int64) (*Card, error)
	GetCardForUpdate(ctx context.Context, id int64) (*Card, error)
	ListCardsByOwner(ctx context.Context, userID int64, page Page) ([]*Card, int, error)
	ListCards(ctx context.Context, page Page) ([]*Card, int, error)
	CreateCard(ctx context.Context, card *Card) error
	SaveCard(ctx context.Context, card *Card) error
	DeleteCard(ctx context.Context, id int64) error
}
