package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flotilla-io/flotilla/internal/api/http/dto"
	"github.com/flotilla-io/flotilla/internal/apperr"
	"github.com/flotilla-io/flotilla/internal/auth"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login exchanges email + password for an access token.
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("email and password are required"))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		AccessToken: result.AccessToken,
		ExpiresAt:   result.ExpiresAt,
		User: dto.LoginUser{
			UserID:   result.UserID.String(),
			TenantID: result.TenantID.String(),
			Email:    result.Email,
			Roles:    result.Roles,
		},
	})
}
