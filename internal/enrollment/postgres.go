package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store against the enrollment_tokens table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ServerExists(ctx context.Context, tenantID, serverID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM servers WHERE tenant_id = $1 AND server_id = $2)`,
		tenantID, serverID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query server existence: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) InsertToken(ctx context.Context, tok EnrollmentToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO enrollment_tokens
			(token_id, tenant_id, server_id, token_hash, expires_at, used_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, NULL, $6, $7)`,
		tok.TokenID, tok.TenantID, tok.ServerID, tok.TokenHash,
		tok.ExpiresAt, tok.CreatedBy, tok.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert enrollment token: %w", err)
	}
	return nil
}

// ConsumeToken marks the token used in a single guarded UPDATE. The WHERE
// clause (used_at IS NULL AND expires_at > now) makes consumption
// exactly-once: of two concurrent callers only one affects the row.
func (s *PostgresStore) ConsumeToken(ctx context.Context, tokenHash []byte, now time.Time) (uuid.UUID, uuid.UUID, error) {
	var tenantID, serverID uuid.UUID
	err := s.pool.QueryRow(ctx, `
		UPDATE enrollment_tokens
		SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING tenant_id, server_id`,
		tokenHash, now,
	).Scan(&tenantID, &serverID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, uuid.Nil, ErrNotConsumed
		}
		return uuid.Nil, uuid.Nil, fmt.Errorf("consume enrollment token: %w", err)
	}
	return tenantID, serverID, nil
}

func (s *PostgresStore) GetTokenByHash(ctx context.Context, tokenHash []byte) (EnrollmentToken, error) {
	var tok EnrollmentToken
	err := s.pool.QueryRow(ctx, `
		SELECT token_id, tenant_id, server_id, token_hash, expires_at, used_at, created_by, created_at
		FROM enrollment_tokens
		WHERE token_hash = $1`,
		tokenHash,
	).Scan(&tok.TokenID, &tok.TenantID, &tok.ServerID, &tok.TokenHash,
		&tok.ExpiresAt, &tok.UsedAt, &tok.CreatedBy, &tok.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EnrollmentToken{}, ErrTokenRowNotFound
		}
		return EnrollmentToken{}, fmt.Errorf("query enrollment token: %w", err)
	}
	return tok, nil
}
