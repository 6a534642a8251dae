package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresStore implements Store against the agents and agent_credentials
// tables.
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

// CreateAgentWithCredential writes the agent and its credential in one
// transaction. The agent insert is ON CONFLICT DO NOTHING on its primary key,
// so the collision-retry in the service re-runs this with the same agent id
// without duplicating the agent row; only the credential is re-inserted.
func (s *PostgresStore) CreateAgentWithCredential(ctx context.Context, agent Agent, cred Credential) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO agents
				(agent_id, tenant_id, server_id, display_name, agent_version, os, arch,
				 capabilities, status, last_seen_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, $10)
			ON CONFLICT (agent_id) DO NOTHING`,
			agent.AgentID, agent.TenantID, agent.ServerID, agent.DisplayName,
			agent.AgentVersion, agent.Os, agent.Arch, agent.Capabilities,
			agent.Status, agent.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert agent: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO agent_credentials
				(tenant_id, agent_id, access_key_id, access_key_hash, issued_at, revoked_at)
			VALUES ($1, $2, $3, $4, $5, NULL)`,
			cred.TenantID, cred.AgentID, cred.AccessKeyID, cred.AccessKeyHash, cred.IssuedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return ErrAccessKeyTaken
			}
			return fmt.Errorf("insert credential: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetAgent(ctx context.Context, tenantID, agentID uuid.UUID) (Agent, error) {
	var a Agent
	err := s.pool.QueryRow(ctx, `
		SELECT agent_id, tenant_id, server_id, display_name, agent_version, os, arch,
		       capabilities, status, last_seen_at, created_at
		FROM agents
		WHERE tenant_id = $1 AND agent_id = $2`,
		tenantID, agentID,
	).Scan(&a.AgentID, &a.TenantID, &a.ServerID, &a.DisplayName, &a.AgentVersion,
		&a.Os, &a.Arch, &a.Capabilities, &a.Status, &a.LastSeenAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrAgentNotFound
		}
		return Agent{}, fmt.Errorf("query agent: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListAgentsByServer(ctx context.Context, tenantID, serverID uuid.UUID) ([]Agent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT agent_id, tenant_id, server_id, display_name, agent_version, os, arch,
		       capabilities, status, last_seen_at, created_at
		FROM agents
		WHERE tenant_id = $1 AND server_id = $2
		ORDER BY created_at DESC`,
		tenantID, serverID,
	)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var result []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.AgentID, &a.TenantID, &a.ServerID, &a.DisplayName,
			&a.AgentVersion, &a.Os, &a.Arch, &a.Capabilities, &a.Status,
			&a.LastSeenAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
