// Package policy decides what a principal may do with a card. Every
// card-touching operation goes through these functions, and each of them
// answers false for a nil card or an unauthenticated principal.
package policy

import (
	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
)

// CanView reports whether p may read card: admins see every card, users see
// their own.
func CanView(p domain.Principal, card *domain.Card) bool {
	if card == nil || !p.Authenticated() {
		return false
	}
	return p.IsAdmin() || p.Owns(card)
}

// CanMutate follows the same rule as CanView.
func CanMutate(p domain.Principal, card *domain.Card) bool {
	return CanView(p, card)
}

// CanTransfer requires p to own both cards. Admin role grants no bypass
// here.
func CanTransfer(p domain.Principal, from, to *domain.Card) bool {
	if !p.Authenticated() {
		return false
	}
	return p.Owns(from) && p.Owns(to)
}

func RequireOwnershipOrAdmin(p domain.Principal, card *domain.Card) error {
	if !CanMutate(p, card) {
		return errors.ErrForbidden.WithDetails("card belongs to another user")
	}
	return nil
}

func RequireTransfer(p domain.Principal, from, to *domain.Card) error {
	if !CanTransfer(p, from, to) {
		return errors.ErrForbidden.WithDetails("transfers are only allowed between your own cards")
	}
	return nil
}

func RequireAdmin(p domain.Principal) error {
	if !p.Authenticated() || !p.IsAdmin() {
		return errors.ErrForbidden.WithDetails("administrator role required")
	}
	return nil
}
