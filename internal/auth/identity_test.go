package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func identityWithRoles(roles ...string) Identity {
	return Identity{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Email:    "user@example.com",
		Roles:    roles,
	}
}

func TestHasRoleCaseInsensitive(t *testing.T) {
	id := identityWithRoles("owner")

	assert.True(t, id.HasRole("Owner"))
	assert.True(t, id.HasRole("OWNER"))
	assert.False(t, id.HasRole("Viewer"))
	assert.False(t, identityWithRoles().HasRole("Owner"))
}

func TestCanIssueEnrollmentToken(t *testing.T) {
	assert.True(t, identityWithRoles("Owner").CanIssueEnrollmentToken())
	assert.True(t, identityWithRoles("admin").CanIssueEnrollmentToken())
	assert.True(t, identityWithRoles("Administrator").CanIssueEnrollmentToken())
	assert.True(t, identityWithRoles("Viewer", "Admin").CanIssueEnrollmentToken())

	assert.False(t, identityWithRoles("Viewer").CanIssueEnrollmentToken())
	assert.False(t, identityWithRoles().CanIssueEnrollmentToken())
}

func TestCanRead(t *testing.T) {
	assert.True(t, identityWithRoles("Viewer").CanRead())
	assert.True(t, identityWithRoles("Owner").CanRead())
	assert.True(t, identityWithRoles("Admin").CanRead())

	assert.False(t, identityWithRoles("Billing").CanRead())
	assert.False(t, identityWithRoles().CanRead())
}
