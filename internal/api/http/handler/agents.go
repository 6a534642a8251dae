package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flotilla-io/flotilla/internal/agents"
	"github.com/flotilla-io/flotilla/internal/api/http/dto"
	"github.com/flotilla-io/flotilla/internal/api/http/middleware"
	"github.com/flotilla-io/flotilla/internal/apperr"
)

type AgentsHandler struct {
	agentService *agents.Service
}

func NewAgentsHandler(agentService *agents.Service) *AgentsHandler {
	return &AgentsHandler{agentService: agentService}
}

// GetAgent returns one agent in the caller's tenant.
// GET /agents/:id
func (h *AgentsHandler) GetAgent(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		respondError(c, apperr.Unauthorized("authentication required"))
		return
	}
	if !identity.CanRead() {
		respondError(c, apperr.Forbidden("insufficient role"))
		return
	}

	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation("invalid agent id"))
		return
	}

	agent, err := h.agentService.GetAgent(c.Request.Context(), identity.TenantID, agentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAgentResponse(agent))
}

// ListAgentsByServer returns the agents enrolled against one server.
// GET /servers/:id/agents
func (h *AgentsHandler) ListAgentsByServer(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		respondError(c, apperr.Unauthorized("authentication required"))
		return
	}
	if !identity.CanRead() {
		respondError(c, apperr.Forbidden("insufficient role"))
		return
	}

	serverID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation("invalid server id"))
		return
	}

	list, err := h.agentService.ListAgentsByServer(c.Request.Context(), identity.TenantID, serverID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]dto.AgentResponse, 0, len(list))
	for _, agent := range list {
		out = append(out, toAgentResponse(agent))
	}

	c.JSON(http.StatusOK, dto.ListAgentsResponse{Agents: out})
}

func toAgentResponse(agent agents.Agent) dto.AgentResponse {
	return dto.AgentResponse{
		AgentID:      agent.AgentID.String(),
		ServerID:     agent.ServerID.String(),
		DisplayName:  agent.DisplayName,
		AgentVersion: agent.AgentVersion,
		Os:           agent.Os,
		Arch:         agent.Arch,
		Capabilities: agent.Capabilities,
		Status:       string(agent.Status),
		LastSeenAt:   agent.LastSeenAt,
		CreatedAt:    agent.CreatedAt,
	}
}
