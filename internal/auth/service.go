package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/flotilla-io/flotilla/internal/apperr"
	"github.com/flotilla-io/flotilla/internal/users"
)

// ErrUserNotFound is returned by Store implementations when no user matches.
var ErrUserNotFound = errors.New("user not found")

type User struct {
	UserID       uuid.UUID
	TenantID     uuid.UUID
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// Store is the persistence boundary for login.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// GetUserRoles returns the role codes the user holds within their tenant.
	GetUserRoles(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error)
}

type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	UserID      uuid.UUID
	TenantID    uuid.UUID
	Email       string
	Roles       []string
}

type Service struct {
	store  Store
	config Config
}

func NewService(store Store, config Config) *Service {
	return &Service{store: store, config: config}
}

// Login verifies the user's password and issues an access token carrying the
// tenant id and role set. Unknown users and bad passwords are both reported
// as the same unauthorized error.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, apperr.Unauthorized("invalid credentials")
		}
		return LoginResult{}, apperr.Internal("query user", err)
	}

	if !user.IsActive || !users.CheckPassword(password, user.PasswordHash) {
		return LoginResult{}, apperr.Unauthorized("invalid credentials")
	}

	roles, err := s.store.GetUserRoles(ctx, user.TenantID, user.UserID)
	if err != nil {
		return LoginResult{}, apperr.Internal("query roles", err)
	}

	accessToken, expiresAt, err := GenerateToken(s.config,
		user.UserID.String(), user.TenantID.String(), user.Email, roles)
	if err != nil {
		return LoginResult{}, apperr.Internal("generate token", err)
	}

	return LoginResult{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		UserID:      user.UserID,
		TenantID:    user.TenantID,
		Email:       user.Email,
		Roles:       roles,
	}, nil
}
