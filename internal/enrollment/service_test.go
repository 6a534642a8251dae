package enrollment

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/WatchBeam/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotilla-io/flotilla/internal/apperr"
	"github.com/flotilla-io/flotilla/internal/token"
)

// fakeStore keeps tokens in memory. ConsumeToken holds a mutex across the
// whole check-and-set so it has the same atomicity as the SQL conditional
// update, which is what the concurrency tests rely on.
type fakeStore struct {
	mu      sync.Mutex
	servers map[uuid.UUID]uuid.UUID // serverID -> tenantID
	tokens  []*EnrollmentToken

	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{servers: make(map[uuid.UUID]uuid.UUID)}
}

func (f *fakeStore) addServer(tenantID, serverID uuid.UUID) {
	f.servers[serverID] = tenantID
}

func (f *fakeStore) ServerExists(_ context.Context, tenantID, serverID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.servers[serverID]
	return ok && owner == tenantID, nil
}

func (f *fakeStore) InsertToken(_ context.Context, tok EnrollmentToken) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := tok
	f.tokens = append(f.tokens, &copied)
	return nil
}

func (f *fakeStore) ConsumeToken(_ context.Context, tokenHash []byte, now time.Time) (uuid.UUID, uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tok := range f.tokens {
		if bytes.Equal(tok.TokenHash, tokenHash) && tok.UsedAt == nil && tok.ExpiresAt.After(now) {
			usedAt := now
			tok.UsedAt = &usedAt
			return tok.TenantID, tok.ServerID, nil
		}
	}
	return uuid.Nil, uuid.Nil, ErrNotConsumed
}

func (f *fakeStore) GetTokenByHash(_ context.Context, tokenHash []byte) (EnrollmentToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tok := range f.tokens {
		if bytes.Equal(tok.TokenHash, tokenHash) {
			return *tok, nil
		}
	}
	return EnrollmentToken{}, ErrTokenRowNotFound
}

func TestIssueToken(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)

	mockClock := clock.NewMockClock()
	svc := NewService(store, mockClock)

	createdBy := uuid.New()
	issued, err := svc.IssueToken(context.Background(), tenantID, serverID, &createdBy, 10*time.Minute)
	require.NoError(t, err)

	assert.Len(t, issued.Token, 43)
	assert.Equal(t, mockClock.Now().Add(10*time.Minute), issued.ExpiresAt)

	require.Len(t, store.tokens, 1)
	stored := store.tokens[0]
	assert.Equal(t, tenantID, stored.TenantID)
	assert.Equal(t, serverID, stored.ServerID)
	assert.Equal(t, token.Hash(issued.Token), stored.TokenHash)
	assert.Nil(t, stored.UsedAt)
	require.NotNil(t, stored.CreatedBy)
	assert.Equal(t, createdBy, *stored.CreatedBy)
}

func TestIssueTokenTTLBounds(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	svc := NewService(store, clock.NewMockClock())

	for _, ttl := range []time.Duration{0, -time.Minute, MaxTTL + time.Second} {
		_, err := svc.IssueToken(context.Background(), tenantID, serverID, nil, ttl)
		require.Error(t, err, "ttl %v", ttl)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}

	for _, ttl := range []time.Duration{time.Second, MaxTTL} {
		_, err := svc.IssueToken(context.Background(), tenantID, serverID, nil, ttl)
		require.NoError(t, err, "ttl %v", ttl)
	}
}

func TestIssueTokenServerNotFound(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, clock.NewMockClock())

	_, err := svc.IssueToken(context.Background(), uuid.New(), uuid.New(), nil, time.Minute)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestIssueTokenCrossTenantServer(t *testing.T) {
	store := newFakeStore()
	ownerTenant, serverID := uuid.New(), uuid.New()
	store.addServer(ownerTenant, serverID)
	svc := NewService(store, clock.NewMockClock())

	// Another tenant asking for a token against that server gets NotFound,
	// not Forbidden, so existence is not confirmed.
	_, err := svc.IssueToken(context.Background(), uuid.New(), serverID, nil, time.Minute)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestIssueTokenStoreFailure(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	store.insertErr = errors.New("connection reset")
	svc := NewService(store, clock.NewMockClock())

	_, err := svc.IssueToken(context.Background(), tenantID, serverID, nil, time.Minute)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	// The plaintext token must never leak through error messages.
	assert.NotContains(t, err.Error(), "token_hash")
}

func TestValidateAndConsume(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	mockClock := clock.NewMockClock()
	svc := NewService(store, mockClock)

	issued, err := svc.IssueToken(context.Background(), tenantID, serverID, nil, 10*time.Minute)
	require.NoError(t, err)

	gotTenant, gotServer, err := svc.ValidateAndConsume(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, tenantID, gotTenant)
	assert.Equal(t, serverID, gotServer)

	// Second presentation of the same token fails.
	_, _, err = svc.ValidateAndConsume(context.Background(), issued.Token)
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestValidateAndConsumeUnknownToken(t *testing.T) {
	svc := NewService(newFakeStore(), clock.NewMockClock())

	_, _, err := svc.ValidateAndConsume(context.Background(), "not-a-real-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateAndConsumeBlankToken(t *testing.T) {
	svc := NewService(newFakeStore(), clock.NewMockClock())

	for _, tok := range []string{"", "   ", "\t"} {
		_, _, err := svc.ValidateAndConsume(context.Background(), tok)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	}
}

func TestValidateAndConsumeTrimsWhitespace(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	svc := NewService(store, clock.NewMockClock())

	issued, err := svc.IssueToken(context.Background(), tenantID, serverID, nil, time.Minute)
	require.NoError(t, err)

	gotTenant, _, err := svc.ValidateAndConsume(context.Background(), "  "+issued.Token+"\n")
	require.NoError(t, err)
	assert.Equal(t, tenantID, gotTenant)
}

func TestValidateAndConsumeExpiredToken(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	mockClock := clock.NewMockClock()
	svc := NewService(store, mockClock)

	issued, err := svc.IssueToken(context.Background(), tenantID, serverID, nil, time.Minute)
	require.NoError(t, err)

	mockClock.AddTime(2 * time.Minute)

	_, _, err = svc.ValidateAndConsume(context.Background(), issued.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// Expiry wins regardless of how often it is retried.
	_, _, err = svc.ValidateAndConsume(context.Background(), issued.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateAndConsumeExactlyOnceUnderConcurrency(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	svc := NewService(store, clock.NewMockClock())

	issued, err := svc.IssueToken(context.Background(), tenantID, serverID, nil, time.Minute)
	require.NoError(t, err)

	const n = 32
	var wg sync.WaitGroup
	results := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, results[i] = svc.ValidateAndConsume(context.Background(), issued.Token)
		}(i)
	}
	wg.Wait()

	successes, alreadyUsed := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrTokenAlreadyUsed):
			alreadyUsed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, alreadyUsed)
}

func TestIssuedTokensAreIndependent(t *testing.T) {
	store := newFakeStore()
	tenantID, serverID := uuid.New(), uuid.New()
	store.addServer(tenantID, serverID)
	svc := NewService(store, clock.NewMockClock())

	first, err := svc.IssueToken(context.Background(), tenantID, serverID, nil, time.Minute)
	require.NoError(t, err)
	second, err := svc.IssueToken(context.Background(), tenantID, serverID, nil, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	// Consuming one leaves the other valid.
	_, _, err = svc.ValidateAndConsume(context.Background(), first.Token)
	require.NoError(t, err)
	_, _, err = svc.ValidateAndConsume(context.Background(), second.Token)
	require.NoError(t, err)
}
