package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		SigningKey:         "test-signing-key-at-least-32-bytes!",
		Issuer:             "flotilla",
		Audience:           "flotilla-api",
		AccessTokenMinutes: 60,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	config := testConfig()
	userID, tenantID := uuid.NewString(), uuid.NewString()

	signed, expiresAt, err := GenerateToken(config, userID, tenantID, "user@example.com", []string{"Owner", "Admin"})
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := ValidateToken(config, signed)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, []string{"Owner", "Admin"}, claims.Roles)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	signed, _, err := GenerateToken(testConfig(), uuid.NewString(), uuid.NewString(), "a@b.c", nil)
	require.NoError(t, err)

	other := testConfig()
	other.SigningKey = "a-completely-different-signing-key!"
	_, err = ValidateToken(other, signed)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	config := testConfig()
	signed, _, err := GenerateToken(config, uuid.NewString(), uuid.NewString(), "a@b.c", nil)
	require.NoError(t, err)

	config.Issuer = "someone-else"
	_, err = ValidateToken(config, signed)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := ValidateToken(testConfig(), "not.a.token")
	assert.Error(t, err)
}

func TestIdentityFromClaims(t *testing.T) {
	config := testConfig()
	userID, tenantID := uuid.New(), uuid.New()

	signed, _, err := GenerateToken(config, userID.String(), tenantID.String(), "user@example.com", []string{"Viewer"})
	require.NoError(t, err)

	claims, err := ValidateToken(config, signed)
	require.NoError(t, err)

	identity, err := IdentityFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, tenantID, identity.TenantID)
	assert.True(t, identity.CanRead())
	assert.False(t, identity.CanIssueEnrollmentToken())
}

func TestIdentityFromClaimsBadIDs(t *testing.T) {
	_, err := IdentityFromClaims(&Claims{TenantID: "not-a-uuid"})
	assert.Error(t, err)
}
