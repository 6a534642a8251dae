// Package agents provisions agent identities and their access-key
// credentials, and serves tenant-scoped agent reads.
package agents

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/WatchBeam/clock"
	"github.com/google/uuid"

	"github.com/flotilla-io/flotilla/internal/apperr"
	"github.com/flotilla-io/flotilla/internal/token"
)

// credentialAttempts bounds the collision-retry loop: one retry with fresh
// key material, then give up.
const credentialAttempts = 2

// ErrAccessKeyTaken is returned by Store.CreateAgentWithCredential when the
// per-tenant access_key_id uniqueness constraint rejects the credential.
var ErrAccessKeyTaken = errors.New("access key id already taken")

// ErrAgentNotFound is returned by Store implementations on a read miss.
var ErrAgentNotFound = errors.New("agent not found")

// Store is the persistence boundary for agents and their credentials.
// CreateAgentWithCredential writes both rows in one durable transaction and
// must be idempotent with respect to the agent row, so a collision retry
// re-inserts only the credential.
type Store interface {
	ServerExists(ctx context.Context, tenantID, serverID uuid.UUID) (bool, error)
	CreateAgentWithCredential(ctx context.Context, agent Agent, cred Credential) error
	GetAgent(ctx context.Context, tenantID, agentID uuid.UUID) (Agent, error)
	ListAgentsByServer(ctx context.Context, tenantID, serverID uuid.UUID) ([]Agent, error)
}

type Service struct {
	store Store
	clock clock.Clock
}

func NewService(store Store, clk clock.Clock) *Service {
	return &Service{store: store, clock: clk}
}

// CreateAgentForServer creates an agent identity for a server the tenant owns
// and issues its access-key credential. The plaintext secret is part of the
// returned EnrollResult and is gone after that: only its SHA-256 digest is
// persisted. An access-key collision is retried once with fresh key material.
func (s *Service) CreateAgentForServer(ctx context.Context, tenantID, serverID uuid.UUID, displayName, agentVersion, osName, arch string, capabilities []byte) (EnrollResult, error) {
	displayName = strings.TrimSpace(displayName)
	agentVersion = strings.TrimSpace(agentVersion)
	osName = strings.TrimSpace(osName)
	arch = strings.TrimSpace(arch)

	if displayName == "" || agentVersion == "" || osName == "" || arch == "" {
		return EnrollResult{}, apperr.Validation("display_name, agent_version, os and arch are required")
	}

	exists, err := s.store.ServerExists(ctx, tenantID, serverID)
	if err != nil {
		if cerr := apperr.FromContext(ctx); cerr != nil {
			return EnrollResult{}, cerr
		}
		return EnrollResult{}, apperr.Internal("check server", err)
	}
	if !exists {
		return EnrollResult{}, apperr.NotFound("server not found")
	}

	now := s.clock.Now()
	agent := Agent{
		AgentID:      uuid.New(),
		TenantID:     tenantID,
		ServerID:     serverID,
		DisplayName:  displayName,
		AgentVersion: agentVersion,
		Os:           osName,
		Arch:         arch,
		Capabilities: capabilities,
		Status:       StatusActive,
		CreatedAt:    now,
	}

	for attempt := 1; attempt <= credentialAttempts; attempt++ {
		accessKeyID, err := token.NewAccessKeyID()
		if err != nil {
			return EnrollResult{}, apperr.Internal("generate access key id", err)
		}
		secret, err := token.NewSecret()
		if err != nil {
			return EnrollResult{}, apperr.Internal("generate secret", err)
		}

		cred := Credential{
			TenantID:      tenantID,
			AgentID:       agent.AgentID,
			AccessKeyID:   accessKeyID,
			AccessKeyHash: token.Hash(secret),
			IssuedAt:      now,
		}

		err = s.store.CreateAgentWithCredential(ctx, agent, cred)
		if err == nil {
			slog.Info("Agent provisioned",
				"agent_id", agent.AgentID,
				"tenant_id", tenantID,
				"server_id", serverID)
			return EnrollResult{
				AgentID:     agent.AgentID,
				AccessKeyID: accessKeyID,
				Secret:      secret,
				IssuedAt:    now,
			}, nil
		}
		if errors.Is(err, ErrAccessKeyTaken) && attempt < credentialAttempts {
			slog.Warn("Access key collision, regenerating",
				"agent_id", agent.AgentID, "attempt", attempt)
			continue
		}
		if cerr := apperr.FromContext(ctx); cerr != nil {
			return EnrollResult{}, cerr
		}
		return EnrollResult{}, apperr.Internal("create agent", err)
	}

	// Unreachable: the loop either returns a result or an error.
	return EnrollResult{}, apperr.Internal("create agent", errors.New("retries exhausted"))
}

// GetAgent returns one agent scoped to the tenant. Agents of other tenants
// are reported as not found.
func (s *Service) GetAgent(ctx context.Context, tenantID, agentID uuid.UUID) (Agent, error) {
	agent, err := s.store.GetAgent(ctx, tenantID, agentID)
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			return Agent{}, apperr.NotFound("agent not found")
		}
		return Agent{}, apperr.Internal("get agent", err)
	}
	return agent, nil
}

// ListAgentsByServer returns the server's agents, newest first.
func (s *Service) ListAgentsByServer(ctx context.Context, tenantID, serverID uuid.UUID) ([]Agent, error) {
	agents, err := s.store.ListAgentsByServer(ctx, tenantID, serverID)
	if err != nil {
		return nil, apperr.Internal("list agents", err)
	}
	return agents, nil
}
