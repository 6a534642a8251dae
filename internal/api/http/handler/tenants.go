package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flotilla-io/flotilla/internal/api/http/dto"
	"github.com/flotilla-io/flotilla/internal/api/http/middleware"
	"github.com/flotilla-io/flotilla/internal/apperr"
	"github.com/flotilla-io/flotilla/internal/tenants"
)

type TenantsHandler struct {
	tenantService *tenants.Service
}

func NewTenantsHandler(tenantService *tenants.Service) *TenantsHandler {
	return &TenantsHandler{tenantService: tenantService}
}

// GetMyTenant returns the caller's own tenant.
// GET /tenants/me
func (h *TenantsHandler) GetMyTenant(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		respondError(c, apperr.Unauthorized("authentication required"))
		return
	}

	tenant, err := h.tenantService.GetMyTenant(c.Request.Context(), identity.TenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TenantMeResponse{
		TenantID:  tenant.TenantID.String(),
		Name:      tenant.Name,
		CreatedAt: tenant.CreatedAt,
	})
}
