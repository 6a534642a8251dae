// Package enrollment issues and consumes single-use, time-boxed enrollment
// tokens. A token authorizes exactly one agent enrollment against one server
// and transitions valid -> consumed exactly once, even under concurrent
// presentation.
package enrollment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/WatchBeam/clock"
	"github.com/google/uuid"

	"github.com/flotilla-io/flotilla/internal/apperr"
	"github.com/flotilla-io/flotilla/internal/token"
)

const (
	// MaxTTL bounds how far in the future a token may expire.
	MaxTTL = 7 * 24 * time.Hour
	// DefaultTTL is applied when the caller does not ask for a specific TTL.
	DefaultTTL = 10 * time.Minute
)

// Token failure modes. They are distinguished internally for logging but the
// enroll endpoint collapses all three into one generic message so callers
// cannot probe token state.
var (
	ErrTokenInvalid     = errors.New("enrollment token invalid")
	ErrTokenAlreadyUsed = errors.New("enrollment token already used")
	ErrTokenExpired     = errors.New("enrollment token expired")
)

// ErrNotConsumed is returned by Store.ConsumeToken when no row qualified for
// the conditional update.
var ErrNotConsumed = errors.New("token not consumed")

// ErrTokenRowNotFound is returned by Store.GetTokenByHash on a miss.
var ErrTokenRowNotFound = errors.New("token row not found")

// Store is the persistence boundary for enrollment tokens. ConsumeToken must
// be a single atomic conditional mutation: it marks the token used only if it
// is currently unconsumed and unexpired, so two racing consumers can never
// both succeed.
type Store interface {
	ServerExists(ctx context.Context, tenantID, serverID uuid.UUID) (bool, error)
	InsertToken(ctx context.Context, tok EnrollmentToken) error
	ConsumeToken(ctx context.Context, tokenHash []byte, now time.Time) (tenantID, serverID uuid.UUID, err error)
	GetTokenByHash(ctx context.Context, tokenHash []byte) (EnrollmentToken, error)
}

type Service struct {
	store Store
	clock clock.Clock
}

func NewService(store Store, clk clock.Clock) *Service {
	return &Service{store: store, clock: clk}
}

// IssueToken mints a new enrollment token for a server owned by the tenant.
// The plaintext is returned to the caller once; only its hash is persisted.
// A server belonging to another tenant is reported as not found.
func (s *Service) IssueToken(ctx context.Context, tenantID, serverID uuid.UUID, createdBy *uuid.UUID, ttl time.Duration) (IssuedToken, error) {
	if ttl <= 0 || ttl > MaxTTL {
		return IssuedToken{}, apperr.Validation("ttl must be positive and at most 7 days")
	}

	exists, err := s.store.ServerExists(ctx, tenantID, serverID)
	if err != nil {
		if cerr := apperr.FromContext(ctx); cerr != nil {
			return IssuedToken{}, cerr
		}
		return IssuedToken{}, apperr.Internal("check server", err)
	}
	if !exists {
		return IssuedToken{}, apperr.NotFound("server not found")
	}

	plaintext, err := token.NewEnrollmentToken()
	if err != nil {
		return IssuedToken{}, apperr.Internal("generate token", err)
	}

	now := s.clock.Now()
	expiresAt := now.Add(ttl)

	tok := EnrollmentToken{
		TokenID:   uuid.New(),
		TenantID:  tenantID,
		ServerID:  serverID,
		TokenHash: token.Hash(plaintext),
		ExpiresAt: expiresAt,
		CreatedBy: createdBy,
		CreatedAt: now,
	}

	if err := s.store.InsertToken(ctx, tok); err != nil {
		if cerr := apperr.FromContext(ctx); cerr != nil {
			return IssuedToken{}, cerr
		}
		return IssuedToken{}, apperr.Internal("store token", err)
	}

	slog.Info("Enrollment token issued",
		"token_id", tok.TokenID,
		"tenant_id", tenantID,
		"server_id", serverID,
		"expires_at", expiresAt)

	return IssuedToken{Token: plaintext, ExpiresAt: expiresAt}, nil
}

// ValidateAndConsume exchanges a presented token for the tenant and server it
// authorizes, atomically marking it used. Under concurrent presentation of
// the same token exactly one caller succeeds; the rest observe
// ErrTokenAlreadyUsed.
func (s *Service) ValidateAndConsume(ctx context.Context, plaintext string) (tenantID, serverID uuid.UUID, err error) {
	plaintext = strings.TrimSpace(plaintext)
	if plaintext == "" {
		return uuid.Nil, uuid.Nil, ErrTokenInvalid
	}

	hash := token.Hash(plaintext)
	now := s.clock.Now()

	tenantID, serverID, err = s.store.ConsumeToken(ctx, hash, now)
	if err == nil {
		slog.Info("Enrollment token consumed", "tenant_id", tenantID, "server_id", serverID)
		return tenantID, serverID, nil
	}
	if !errors.Is(err, ErrNotConsumed) {
		if cerr := apperr.FromContext(ctx); cerr != nil {
			return uuid.Nil, uuid.Nil, cerr
		}
		return uuid.Nil, uuid.Nil, apperr.Internal("consume token", err)
	}

	// The conditional update matched nothing. Classify why, for logging and
	// for the caller's (collapsed) error message.
	tok, lookupErr := s.store.GetTokenByHash(ctx, hash)
	if lookupErr != nil {
		if errors.Is(lookupErr, ErrTokenRowNotFound) {
			slog.Warn("Enrollment attempt with unknown token")
			return uuid.Nil, uuid.Nil, ErrTokenInvalid
		}
		return uuid.Nil, uuid.Nil, apperr.Internal("lookup token", lookupErr)
	}

	if tok.UsedAt != nil {
		slog.Warn("Enrollment attempt with consumed token", "token_id", tok.TokenID)
		return uuid.Nil, uuid.Nil, ErrTokenAlreadyUsed
	}
	if !tok.ExpiresAt.After(now) {
		slog.Warn("Enrollment attempt with expired token",
			"token_id", tok.TokenID, "expires_at", tok.ExpiresAt)
		return uuid.Nil, uuid.Nil, ErrTokenExpired
	}

	// The row looked consumable but the guarded update missed it; a racing
	// consumer won between the two statements.
	return uuid.Nil, uuid.Nil, ErrTokenAlreadyUsed
}
