package enrollment

import (
	"time"

	"github.com/google/uuid"
)

// EnrollmentToken is the durable record of an issued token. Only the SHA-256
// digest of the plaintext is stored; consumed tokens are kept as an audit
// trail, never deleted.
type EnrollmentToken struct {
	TokenID   uuid.UUID
	TenantID  uuid.UUID
	ServerID  uuid.UUID
	TokenHash []byte
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedBy *uuid.UUID
	CreatedAt time.Time
}

// IssuedToken is returned to the caller exactly once; the plaintext is never
// persisted or logged.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}
