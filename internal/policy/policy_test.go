package policy

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
)

var (
	owner    = domain.Principal{UserID: 1, Username: "owner", Roles: domain.NewRoleSet(domain.RoleUser)}
	stranger = domain.Principal{UserID: 2, Username: "stranger", Roles: domain.NewRoleSet(domain.RoleUser)}
	admin    = domain.Principal{UserID: 3, Username: "admin", Roles: domain.NewRoleSet(domain.RoleAdmin)}
	nobody   = domain.Principal{}
)

func TestAuthorizationMatrix(t *testing.T) {
	ownCard := &domain.Card{ID: 10, UserID: 1}
	ownOther := &domain.Card{ID: 11, UserID: 1}

	tests := []struct {
		name         string
		principal    domain.Principal
		wantView     bool
		wantBlock    bool
		wantTransfer bool
	}{
		{"user owner", owner, true, true, true},
		{"user non-owner", stranger, false, false, false},
		{"admin", admin, true, true, false},
		{"unauthenticated", nobody, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantView, CanView(tt.principal, ownCard))
			assert.Equal(t, tt.wantBlock, CanMutate(tt.principal, ownCard))
			assert.Equal(t, tt.wantTransfer, CanTransfer(tt.principal, ownCard, ownOther))

			err := RequireOwnershipOrAdmin(tt.principal, ownCard)
			assert.Equal(t, !tt.wantBlock, stderrors.Is(err, errors.ErrForbidden))

			err = RequireTransfer(tt.principal, ownCard, ownOther)
			assert.Equal(t, !tt.wantTransfer, stderrors.Is(err, errors.ErrForbidden))
		})
	}
}

func TestTransferRequiresOwnershipOfBothCards(t *testing.T) {
	mine := &domain.Card{ID: 1, UserID: owner.UserID}
	theirs := &domain.Card{ID: 2, UserID: stranger.UserID}

	assert.False(t, CanTransfer(owner, mine, theirs))
	assert.False(t, CanTransfer(owner, theirs, mine))
	assert.False(t, CanTransfer(admin, mine, theirs))
}

func TestNilCardNeverAllowed(t *testing.T) {
	assert.False(t, CanView(admin, nil))
	assert.False(t, CanMutate(owner, nil))
	assert.False(t, CanTransfer(owner, nil, nil))
	assert.Error(t, RequireOwnershipOrAdmin(admin, nil))
}

func TestRequireAdmin(t *testing.T) {
	assert.NoError(t, RequireAdmin(admin))
	assert.True(t, stderrors.Is(RequireAdmin(owner), errors.ErrForbidden))
	assert.True(t, stderrors.Is(RequireAdmin(nobody), errors.ErrForbidden))
	assert.Error(t, RequireAdmin(domain.Principal{Roles: domain.NewRoleSet(domain.RoleAdmin)}))
}
