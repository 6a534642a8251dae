package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flotilla-io/flotilla/internal/api/http/dto"
	"github.com/flotilla-io/flotilla/internal/api/http/middleware"
	"github.com/flotilla-io/flotilla/internal/apperr"
	"github.com/flotilla-io/flotilla/internal/servers"
)

type ServersHandler struct {
	serverService *servers.Service
}

func NewServersHandler(serverService *servers.Service) *ServersHandler {
	return &ServersHandler{serverService: serverService}
}

// CreateServer registers a new server in the caller's tenant.
// POST /servers
func (h *ServersHandler) CreateServer(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		respondError(c, apperr.Unauthorized("authentication required"))
		return
	}

	var req dto.CreateServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("name is required"))
		return
	}

	input := servers.CreateServerInput{
		Name:        req.Name,
		Hostname:    req.Hostname,
		Description: req.Description,
		Tags:        req.Tags,
		Status:      req.Status,
	}
	if req.ProjectID != "" {
		id, err := uuid.Parse(req.ProjectID)
		if err != nil {
			respondError(c, apperr.Validation("invalid project id"))
			return
		}
		input.ProjectID = &id
	}
	if req.EnvironmentID != "" {
		id, err := uuid.Parse(req.EnvironmentID)
		if err != nil {
			respondError(c, apperr.Validation("invalid environment id"))
			return
		}
		input.EnvironmentID = &id
	}

	server, err := h.serverService.Create(c.Request.Context(), identity.TenantID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toServerResponse(server))
}

// GetServer returns one server in the caller's tenant.
// GET /servers/:id
func (h *ServersHandler) GetServer(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		respondError(c, apperr.Unauthorized("authentication required"))
		return
	}

	serverID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation("invalid server id"))
		return
	}

	server, err := h.serverService.GetByID(c.Request.Context(), identity.TenantID, serverID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toServerResponse(server))
}

// UpdateServer applies a partial update to a server.
// PUT /servers/:id
func (h *ServersHandler) UpdateServer(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		respondError(c, apperr.Unauthorized("authentication required"))
		return
	}

	serverID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation("invalid server id"))
		return
	}

	var req dto.UpdateServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	input := servers.UpdateServerInput{
		Name:        req.Name,
		Hostname:    req.Hostname,
		Description: req.Description,
		Tags:        req.Tags,
		Status:      req.Status,
	}
	if req.ProjectID != nil {
		id, err := uuid.Parse(*req.ProjectID)
		if err != nil {
			respondError(c, apperr.Validation("invalid project id"))
			return
		}
		input.ProjectID = &id
	}
	if req.EnvironmentID != nil {
		id, err := uuid.Parse(*req.EnvironmentID)
		if err != nil {
			respondError(c, apperr.Validation("invalid environment id"))
			return
		}
		input.EnvironmentID = &id
	}

	server, err := h.serverService.Update(c.Request.Context(), identity.TenantID, serverID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toServerResponse(server))
}

// ListServers returns a filtered, paged server listing.
// GET /servers
func (h *ServersHandler) ListServers(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		respondError(c, apperr.Unauthorized("authentication required"))
		return
	}

	var req dto.ListServersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, apperr.Validation("invalid query parameters"))
		return
	}

	query := servers.ListQuery{
		Status:   req.Status,
		Search:   req.Search,
		TagsMode: servers.TagsMode(req.TagsMode),
		SortBy:   req.SortBy,
		SortDir:  req.SortDir,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Tags != "" {
		query.Tags = strings.Split(req.Tags, ",")
	}
	if req.ProjectID != "" {
		id, err := uuid.Parse(req.ProjectID)
		if err != nil {
			respondError(c, apperr.Validation("invalid project id"))
			return
		}
		query.ProjectID = &id
	}
	if req.EnvironmentID != "" {
		id, err := uuid.Parse(req.EnvironmentID)
		if err != nil {
			respondError(c, apperr.Validation("invalid environment id"))
			return
		}
		query.EnvironmentID = &id
	}

	result, err := h.serverService.List(c.Request.Context(), identity.TenantID, query)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]dto.ServerResponse, 0, len(result.Items))
	for _, server := range result.Items {
		out = append(out, toServerResponse(server))
	}

	c.JSON(http.StatusOK, dto.ListServersResponse{
		Servers:    out,
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

func toServerResponse(server servers.Server) dto.ServerResponse {
	resp := dto.ServerResponse{
		ServerID:    server.ServerID.String(),
		Name:        server.Name,
		Hostname:    server.Hostname,
		Description: server.Description,
		Tags:        server.Tags,
		Status:      server.Status,
		CreatedAt:   server.CreatedAt,
		UpdatedAt:   server.UpdatedAt,
	}
	if server.ProjectID != nil {
		resp.ProjectID = server.ProjectID.String()
	}
	if server.EnvironmentID != nil {
		resp.EnvironmentID = server.EnvironmentID.String()
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	return resp
}
