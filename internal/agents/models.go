package agents

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

type Agent struct {
	AgentID      uuid.UUID
	TenantID     uuid.UUID
	ServerID     uuid.UUID
	DisplayName  string
	AgentVersion string
	Os           string
	Arch         string
	// Capabilities is opaque enrollee-supplied JSON; stored as-is, never
	// interpreted by the backend.
	Capabilities []byte
	Status       Status
	LastSeenAt   *time.Time
	CreatedAt    time.Time
}

// Credential is the durable half of an agent's access-key pair. The secret
// itself is never stored, only its hash.
type Credential struct {
	TenantID      uuid.UUID
	AgentID       uuid.UUID
	AccessKeyID   string
	AccessKeyHash []byte
	IssuedAt      time.Time
	RevokedAt     *time.Time
}

// EnrollResult carries the plaintext secret exactly once; it is not
// retrievable after this response.
type EnrollResult struct {
	AgentID     uuid.UUID
	AccessKeyID string
	Secret      string
	IssuedAt    time.Time
}
