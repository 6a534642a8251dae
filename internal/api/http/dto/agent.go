package dto

import (
	"encoding/json"
	"time"
)

type AgentResponse struct {
	AgentID      string          `json:"agent_id"`
	ServerID     string          `json:"server_id"`
	DisplayName  string          `json:"display_name"`
	AgentVersion string          `json:"agent_version"`
	Os           string          `json:"os"`
	Arch         string          `json:"arch"`
	Capabilities json.RawMessage `json:"capabilities,omitempty"`
	Status       string          `json:"status"`
	LastSeenAt   *time.Time      `json:"last_seen_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ListAgentsResponse struct {
	Agents []AgentResponse `json:"agents"`
}
