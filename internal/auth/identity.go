package auth

import (
	"strings"

	"github.com/google/uuid"
)

// Identity is the authenticated caller, resolved from the JWT by the HTTP
// middleware and passed explicitly into services. Roles are tenant-scoped
// role codes.
type Identity struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Email    string
	Roles    []string
}

// HasRole reports whether the identity holds any of the given roles.
// Comparison is case-insensitive.
func (id Identity) HasRole(roles ...string) bool {
	for _, have := range id.Roles {
		for _, want := range roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// CanIssueEnrollmentToken is the gate in front of token issuance. Only
// owners and admins may invite agents onto a server.
func (id Identity) CanIssueEnrollmentToken() bool {
	return id.HasRole("Owner", "Admin", "Administrator")
}

// CanRead gates the agent and server read paths. Note the enrollment
// exchange itself is not gated here: possession of a valid unconsumed token
// is the credential for that call.
func (id Identity) CanRead() bool {
	return id.HasRole("Owner", "Admin", "Administrator", "Viewer")
}
