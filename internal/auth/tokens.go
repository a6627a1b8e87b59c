// Package auth hashes passwords and issues the bearer tokens the HTTP layer
// turns into a domain.Principal.
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
)

// Claims carries the principal in an HS256 token. Subject holds the username.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64    `json:"uid"`
	Roles  []string `json:"roles"`
}

type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for user. It returns the token and its expiry.
func (m *TokenManager) Issue(user *domain.User) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        strconv.FormatInt(user.ID, 10) + "-" + strconv.FormatInt(now.UnixNano(), 36),
			Subject:   user.Username,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: user.ID,
		Roles:  user.Roles.Strings(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, errors.NewAppError(errors.InternalError, "failed to sign token").WithDetails(err.Error())
	}
	return token, expiresAt, nil
}

// Parse validates signature, algorithm, issuer and expiry and returns the
// principal the token was issued for.
func (m *TokenManager) Parse(token string) (domain.Principal, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return domain.Principal{}, errors.ErrUnauthorized.WithDetails("invalid or expired token")
	}

	roles, err := domain.ParseRoleSet(claims.Roles)
	if err != nil || roles == 0 || claims.UserID <= 0 {
		return domain.Principal{}, errors.ErrUnauthorized.WithDetails("token carries no usable identity")
	}

	return domain.Principal{
		UserID:   claims.UserID,
		Username: claims.Subject,
		Roles:    roles,
	}, nil
}
