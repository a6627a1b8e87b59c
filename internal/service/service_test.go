package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"bank-cards/internal/domain"
	"bank-cards/internal/repository"
	"bank-cards/internal/vault"
)

const testSecret = "test-card-encryption-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store *repository.MemoryStore
	vault *vault.Vault
	locks *CardLocks
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	v, err := vault.New(testSecret)
	require.NoError(t, err)
	return &fixture{store: repository.NewMemoryStore(discardLogger()), vault: v, locks: NewCardLocks()}
}

func (f *fixture) user(t *testing.T, username string, roles ...domain.Role) domain.Principal {
	t.Helper()
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleUser}
	}
	u := &domain.User{Username: username, PasswordHash: "x", Enabled: true, Roles: domain.NewRoleSet(roles...)}
	require.NoError(t, f.store.Users().CreateUser(context.Background(), u))
	return u.Principal()
}

func (f *fixture) card(t *testing.T, owner domain.Principal, number, balance string) *domain.Card {
	t.Helper()
	encrypted, err := f.vault.Encrypt(number)
	require.NoError(t, err)
	return f.rawCard(t, owner, encrypted, balance)
}

// rawCard stores a card with the given ciphertext as is.
func (f *fixture) rawCard(t *testing.T, owner domain.Principal, encrypted, balance string) *domain.Card {
	t.Helper()
	c := &domain.Card{
		CardNumberEncrypted: encrypted,
		OwnerName:           "CARD HOLDER",
		ExpiryMonth:         12,
		ExpiryYear:          2030,
		Status:              domain.CardStatusActive,
		Balance:             decimal.RequireFromString(balance),
		UserID:              owner.UserID,
	}
	require.NoError(t, f.store.Cards().CreateCard(context.Background(), c))
	return c
}

func (f *fixture) balance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	c, err := f.store.Cards().GetCard(context.Background(), id)
	require.NoError(t, err)
	return c.Balance
}
