package auth

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
)

func testUser() *domain.User {
	return &domain.User{ID: 7, Username: "ivan", Roles: domain.NewRoleSet(domain.RoleUser, domain.RoleAdmin)}
}

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager("secret", "bank-cards", time.Hour)

	token, expiresAt, err := m.Issue(testUser())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	p, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.UserID)
	assert.Equal(t, "ivan", p.Username)
	assert.True(t, p.IsAdmin())
	assert.True(t, p.Roles.Has(domain.RoleUser))
}

func TestParseRejects(t *testing.T) {
	m := NewTokenManager("secret", "bank-cards", time.Hour)
	valid, _, err := m.Issue(testUser())
	require.NoError(t, err)

	expired := NewTokenManager("secret", "bank-cards", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.Issue(testUser())
	require.NoError(t, err)

	otherIssuer, _, err := NewTokenManager("secret", "someone-else", time.Hour).Issue(testUser())
	require.NoError(t, err)

	otherKey, _, err := NewTokenManager("other-secret", "bank-cards", time.Hour).Issue(testUser())
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "bank-cards", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           7,
		Roles:            []string{"ADMIN"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"expired":      expiredToken,
		"other issuer": otherIssuer,
		"other key":    otherKey,
		"alg none":     unsigned,
		"truncated":    valid[:len(valid)-2],
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Parse(token)
			assert.True(t, stderrors.Is(err, errors.ErrUnauthorized))
		})
	}
}

func TestParseRejectsTokenWithoutRoles(t *testing.T) {
	m := NewTokenManager("secret", "bank-cards", time.Hour)
	token, _, err := m.Issue(&domain.User{ID: 7, Username: "ivan"})
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.True(t, stderrors.Is(err, errors.ErrUnauthorized))
}
