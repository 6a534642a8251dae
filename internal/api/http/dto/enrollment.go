package dto

import (
	"encoding/json"
	"time"
)

type IssueEnrollmentTokenRequest struct {
	// TTLSeconds is optional; the server default applies when omitted.
	TTLSeconds int64 `json:"ttl_seconds" binding:"omitempty,min=1"`
}

type IssueEnrollmentTokenResponse struct {
	Token     string    `json:"token"` // Only shown once
	ExpiresAt time.Time `json:"expires_at"`
}

type AgentEnrollRequest struct {
	Token        string          `json:"token" binding:"required"`
	DisplayName  string          `json:"display_name" binding:"required"`
	AgentVersion string          `json:"agent_version" binding:"required"`
	Os           string          `json:"os" binding:"required"`
	Arch         string          `json:"arch" binding:"required"`
	Capabilities json.RawMessage `json:"capabilities,omitempty"`
}

type AgentEnrollResponse struct {
	AgentID     string    `json:"agent_id"`
	AccessKeyID string    `json:"access_key_id"`
	Secret      string    `json:"secret"` // Only shown once
	IssuedAt    time.Time `json:"issued_at"`
}
