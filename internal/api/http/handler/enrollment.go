package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flotilla-io/flotilla/internal/agents"
	"github.com/flotilla-io/flotilla/internal/api/http/dto"
	"github.com/flotilla-io/flotilla/internal/api/http/middleware"
	"github.com/flotilla-io/flotilla/internal/apperr"
	"github.com/flotilla-io/flotilla/internal/enrollment"
)

// enrollFailedMessage is the single message returned for every token failure
// mode on the enroll endpoint. Distinguishing invalid from used from expired
// would let an unauthenticated caller probe token state.
const enrollFailedMessage = "invalid or expired enrollment token"

type EnrollmentHandler struct {
	enrollmentService *enrollment.Service
	agentService      *agents.Service
}

func NewEnrollmentHandler(enrollmentService *enrollment.Service, agentService *agents.Service) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollmentService: enrollmentService,
		agentService:      agentService,
	}
}

// IssueToken mints a single-use enrollment token for a server.
// POST /servers/:id/enrollment-tokens
func (h *EnrollmentHandler) IssueToken(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		respondError(c, apperr.Unauthorized("authentication required"))
		return
	}
	if !identity.CanIssueEnrollmentToken() {
		respondError(c, apperr.Forbidden("insufficient role"))
		return
	}

	serverID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation("invalid server id"))
		return
	}

	var req dto.IssueEnrollmentTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	ttl := enrollment.DefaultTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	createdBy := identity.UserID
	issued, err := h.enrollmentService.IssueToken(c.Request.Context(),
		identity.TenantID, serverID, &createdBy, ttl)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.IssueEnrollmentTokenResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	})
}

// Enroll exchanges an enrollment token for an agent identity and access-key
// credential. The caller is unauthenticated: the token is the credential.
// POST /agents/enroll
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req dto.AgentEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("token, display_name, agent_version, os and arch are required"))
		return
	}

	tenantID, serverID, err := h.enrollmentService.ValidateAndConsume(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, enrollment.ErrTokenInvalid) ||
			errors.Is(err, enrollment.ErrTokenAlreadyUsed) ||
			errors.Is(err, enrollment.ErrTokenExpired) {
			respondError(c, apperr.Unauthorized(enrollFailedMessage))
			return
		}
		respondError(c, err)
		return
	}

	result, err := h.agentService.CreateAgentForServer(c.Request.Context(),
		tenantID, serverID, req.DisplayName, req.AgentVersion, req.Os, req.Arch, req.Capabilities)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.AgentEnrollResponse{
		AgentID:     result.AgentID.String(),
		AccessKeyID: result.AccessKeyID,
		Secret:      result.Secret,
		IssuedAt:    result.IssuedAt,
	})
}
