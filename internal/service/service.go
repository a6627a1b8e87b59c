// Package service holds the card, transfer and user operations. Every
// operation takes the calling domain.Principal as an explicit argument.
package service

import (
	"github.com/shopspring/decimal"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
)

// CardCipher is the part of the vault the services need.
type CardCipher interface {
	Encrypt(plaintext string) (string, error)
	MaskEncrypted(encoded string) (string, error)
}

// CardView is a card as shown to its owner or an administrator.
type CardView struct {
	ID           int64             `json:"id"`
	MaskedNumber string            `json:"masked_number"`
	OwnerName    string            `json:"owner_name"`
	ExpiryMonth  int               `json:"expiry_month"`
	ExpiryYear   int               `json:"expiry_year"`
	Status       domain.CardStatus `json:"status"`
	Balance      decimal.Decimal   `json:"balance"`
}

func newCardView(card *domain.Card, masked string) *CardView {
	return &CardView{
		ID:           card.ID,
		MaskedNumber: masked,
		OwnerName:    card.OwnerName,
		ExpiryMonth:  card.ExpiryMonth,
		ExpiryYear:   card.ExpiryYear,
		Status:       card.Status,
		Balance:      card.Balance,
	}
}

type CardPage struct {
	Items  []*CardView `json:"items"`
	Total  int         `json:"total"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
}

func validatePage(page domain.Page) (domain.Page, error) {
	if page.Offset < 0 {
		return page, errors.ErrInvalidPage
	}
	return page.Normalize(), nil
}

func validateCardID(id int64) error {
	if id <= 0 {
		return errors.ErrInvalidCardID
	}
	return nil
}
