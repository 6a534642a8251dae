package agents

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/WatchBeam/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotilla-io/flotilla/internal/apperr"
	"github.com/flotilla-io/flotilla/internal/token"
)

type storedCredential struct {
	cred Credential
}

type fakeStore struct {
	mu      sync.Mutex
	servers map[uuid.UUID]uuid.UUID // serverID -> tenantID
	agents  map[uuid.UUID]Agent
	creds   map[string]storedCredential // tenantID/accessKeyID

	// forceCollisions makes the next N credential writes fail with
	// ErrAccessKeyTaken.
	forceCollisions int
	createErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		servers: make(map[uuid.UUID]uuid.UUID),
		agents:  make(map[uuid.UUID]Agent),
		creds:   make(map[string]storedCredential),
	}
}

func (f *fakeStore) addServer(tenantID, serverID uuid.UUID) {
	f.servers[serverID] = tenantID
}

func (f *fakeStore) ServerExists(_ context.Context, tenantID, serverID uuid.UUID) (bool, error) {
	owner, ok := f.servers[serverID]
	return ok && owner == tenantID, nil
}

func (f *fakeStore) CreateAgentWithCredential(_ context.Context, agent Agent, cred Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	if f.forceCollisions > 0 {
		f.forceCollisions--
		return ErrAccessKeyTaken
	}

	key := cred.TenantID.String() + "/" + cred.AccessKeyID
	if _, taken := f.creds[key]; taken {
		return ErrAccessKeyTaken
	}

	// Agent insert is idempotent, matching the ON CONFLICT DO NOTHING in the
	// postgres store.
	if _, ok := f.agents[agent.AgentID]; !ok {
		f.agents[agent.AgentID] = agent
	}
	f.creds[key] = storedCredential{cred: cred}
	return nil
}

func (f *fakeStore) GetAgent(_ context.Context, tenantID, agentID uuid.UUID) (Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	agent, ok := f.agents[agentID]
	if !ok || agent.TenantID != tenantID {
		return Agent{}, ErrAgentNotFound
	}
	return agent, nil
}

func (f *fakeStore) ListAgentsByServer(_ context.Context, tenantID, serverID uuid.UUID) ([]Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []Agent
	for _, a := range f.agents {
		if a.TenantID == tenantID && a.ServerID == serverID {
			result = append(result, a)
		}
	}
	return result, nil
}

func TestCreateAgentForServer(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	svc := NewService(store, clock.NewMockClock())

	result, err := svc.CreateAgentForServer(context.Background(), tenantID, serverID,
		"web-01 agent", "1.4.2", "linux", "x86_64", []byte(`{"docker":true}`))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, result.AgentID)
	assert.Len(t, result.AccessKeyID, 22)
	assert.Len(t, result.Secret, 43)

	agent := store.agents[result.AgentID]
	assert.Equal(t, tenantID, agent.TenantID)
	assert.Equal(t, serverID, agent.ServerID)
	assert.Equal(t, StatusActive, agent.Status)
	assert.Nil(t, agent.LastSeenAt)

	// Only the hash of the secret is stored.
	stored := store.creds[tenantID.String()+"/"+result.AccessKeyID]
	assert.Equal(t, token.Hash(result.Secret), stored.cred.AccessKeyHash)
	assert.NotContains(t, string(stored.cred.AccessKeyHash), result.Secret)
}

func TestCreateAgentTrimsFields(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	svc := NewService(store, clock.NewMockClock())

	result, err := svc.CreateAgentForServer(context.Background(), tenantID, serverID,
		"  edge-agent  ", " 2.0.0 ", " linux ", " arm64 ", nil)
	require.NoError(t, err)

	agent := store.agents[result.AgentID]
	assert.Equal(t, "edge-agent", agent.DisplayName)
	assert.Equal(t, "2.0.0", agent.AgentVersion)
	assert.Equal(t, "linux", agent.Os)
	assert.Equal(t, "arm64", agent.Arch)
}

func TestCreateAgentValidation(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	svc := NewService(store, clock.NewMockClock())

	cases := []struct {
		name                               string
		displayName, version, osName, arch string
	}{
		{"blank display name", "", "1.0.0", "linux", "x86_64"},
		{"whitespace display name", "   ", "1.0.0", "linux", "x86_64"},
		{"blank version", "agent", "", "linux", "x86_64"},
		{"blank os", "agent", "1.0.0", "", "x86_64"},
		{"blank arch", "agent", "1.0.0", "linux", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateAgentForServer(context.Background(), tenantID, serverID,
				tc.displayName, tc.version, tc.osName, tc.arch, nil)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Empty(t, store.agents, "no agent row on validation failure")
		})
	}
}

func TestCreateAgentServerNotFound(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, clock.NewMockClock())

	_, err := svc.CreateAgentForServer(context.Background(), uuid.New(), uuid.New(),
		"agent", "1.0.0", "linux", "x86_64", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateAgentCrossTenantServer(t *testing.T) {
	store := newFakeStore()
	ownerTenant, serverID := uuid.New(), uuid.New()
	store.addServer(ownerTenant, serverID)
	svc := NewService(store, clock.NewMockClock())

	_, err := svc.CreateAgentForServer(context.Background(), uuid.New(), serverID,
		"agent", "1.0.0", "linux", "x86_64", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateAgentRetriesOnceOnCollision(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	store.forceCollisions = 1
	svc := NewService(store, clock.NewMockClock())

	result, err := svc.CreateAgentForServer(context.Background(), tenantID, serverID,
		"agent", "1.0.0", "linux", "x86_64", nil)
	require.NoError(t, err)

	// The retry succeeded with fresh key material and exactly one agent row.
	assert.Len(t, store.agents, 1)
	assert.Len(t, store.creds, 1)
	assert.NotEmpty(t, result.AccessKeyID)
}

func TestCreateAgentGivesUpAfterSecondCollision(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	store.forceCollisions = 2
	svc := NewService(store, clock.NewMockClock())

	_, err := svc.CreateAgentForServer(context.Background(), tenantID, serverID,
		"agent", "1.0.0", "linux", "x86_64", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestCreateAgentStoreFailure(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	store.createErr = errors.New("disk full")
	svc := NewService(store, clock.NewMockClock())

	_, err := svc.CreateAgentForServer(context.Background(), tenantID, serverID,
		"agent", "1.0.0", "linux", "x86_64", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestGetAgentTenantScoped(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	svc := NewService(store, clock.NewMockClock())

	result, err := svc.CreateAgentForServer(context.Background(), tenantID, serverID,
		"agent", "1.0.0", "linux", "x86_64", nil)
	require.NoError(t, err)

	got, err := svc.GetAgent(context.Background(), tenantID, result.AgentID)
	require.NoError(t, err)
	assert.Equal(t, result.AgentID, got.AgentID)

	// Another tenant cannot see it.
	_, err = svc.GetAgent(context.Background(), uuid.New(), result.AgentID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListAgentsByServer(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	svc := NewService(store, clock.NewMockClock())

	for i := 0; i < 3; i++ {
		_, err := svc.CreateAgentForServer(context.Background(), tenantID, serverID,
			"agent", "1.0.0", "linux", "x86_64", nil)
		require.NoError(t, err)
	}

	agents, err := svc.ListAgentsByServer(context.Background(), tenantID, serverID)
	require.NoError(t, err)
	assert.Len(t, agents, 3)

	// Empty for a different tenant.
	agents, err = svc.ListAgentsByServer(context.Background(), uuid.New(), serverID)
	require.NoError(t, err)
	assert.Empty(t, agents)
}
