package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
	"bank-cards/internal/policy"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenIssuer interface {
	Issue(user *domain.User) (string, time.Time, error)
}

type UserService struct {
	store  domain.Store
	hasher PasswordHasher
	tokens TokenIssuer
	logger *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(store domain.Store, hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

type RegisterRequest struct {
	Username   string
	Password   string
	FirstName  string
	LastName   string
	MiddleName string
}

const (
	minPasswordLength = 8
	// bcrypt rejects longer inputs.
	maxPasswordLength = 72
)

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Register creates an enabled account with the USER role.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "username is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "password must be at least %d characters", minPasswordLength)
	}
	if len(req.Password) > maxPasswordLength {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "password must be at most %d bytes", maxPasswordLength)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to hash password").WithDetails(err.Error())
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		MiddleName:   strings.TrimSpace(req.MiddleName),
		Enabled:      true,
		Roles:        domain.NewRoleSet(domain.RoleUser),
	}
	if err := s.store.Users().CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID)
	return user, nil
}

// Login answers invalid_credentials for an unknown user, a wrong password and
// a disabled account alike. An unknown user still costs one hash comparison.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.store.Users().GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			_ = s.hasher.Compare(s.placeholderHash(), password)
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil || !user.Enabled {
		s.logger.Warn("Login rejected", "user_id", user.ID)
		return nil, errors.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// placeholderHash is compared against when no account matches, so that the
// not-found branch of Login does the same bcrypt work as a wrong password.
func (s *UserService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("placeholder-password")
		if err != nil {
			s.logger.Error("Failed to prepare placeholder password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// Me returns the account behind p. A token whose account has since been
// deleted or disabled is rejected as unauthorized.
func (s *UserService) Me(ctx context.Context, p domain.Principal) (*domain.User, error) {
	if !p.Authenticated() {
		return nil, errors.ErrUnauthorized
	}
	user, err := s.store.Users().GetUserByID(ctx, p.UserID)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.ErrUnauthorized
		}
		return nil, err
	}
	if !user.Enabled {
		return nil, errors.ErrUnauthorized
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, p domain.Principal) ([]*domain.User, error) {
	if err := policy.RequireAdmin(p); err != nil {
		return nil, err
	}
	return s.store.Users().ListUsers(ctx)
}

// DeleteUser removes the user together with their cards.
func (s *UserService) DeleteUser(ctx context.Context, p domain.Principal, id int64) error {
	if err := policy.RequireAdmin(p); err != nil {
		return err
	}
	if id <= 0 {
		return errors.NewAppError(errors.InvalidInput, "user id must be positive")
	}
	if err := s.store.Users().DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("User deleted", "user_id", id, "admin_id", p.UserID)
	return nil
}

// EnsureAdmin creates an enabled ADMIN account unless username is already
// taken. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	_, err := s.store.Users().GetUserByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !stderrors.Is(err, errors.ErrUserNotFound) {
		return false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, errors.NewAppError(errors.InternalError, "failed to hash password").WithDetails(err.Error())
	}
	admin := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Enabled:      true,
		Roles:        domain.NewRoleSet(domain.RoleUser, domain.RoleAdmin),
	}
	if err := s.store.Users().CreateUser(ctx, admin); err != nil {
		if stderrors.Is(err, errors.ErrDuplicateUser) {
			return false, nil
		}
		return false, err
	}

	s.logger.Info("Bootstrap administrator created", "user_id", admin.ID)
	return true, nil
}
