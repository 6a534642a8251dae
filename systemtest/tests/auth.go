package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotilla-io/flotilla/internal/api/http/dto"
)

func TestHealthCheck(t *testing.T, router *gin.Engine) {
	rr := doJSON(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestLogin(t *testing.T, router *gin.Engine, adminEmail, adminPassword string) {
	t.Run("success", func(t *testing.T) {
		body := dto.LoginRequest{Email: adminEmail, Password: adminPassword}
		rr := doJSON(router, "POST", "/auth/login", body)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.LoginResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, adminEmail, resp.User.Email)
		assert.Contains(t, resp.User.Roles, "Owner")
	})

	t.Run("wrong password", func(t *testing.T) {
		body := dto.LoginRequest{Email: adminEmail, Password: "not-the-password"}
		rr := doJSON(router, "POST", "/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		body := dto.LoginRequest{Email: "nobody@systemtest.local", Password: "whatever"}
		rr := doJSON(router, "POST", "/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		body := dto.LoginRequest{Email: adminEmail}
		rr := doJSON(router, "POST", "/auth/login", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestTenantMe(t *testing.T, router *gin.Engine, adminEmail, adminPassword string) {
	token := login(t, router, adminEmail, adminPassword)

	t.Run("returns own tenant", func(t *testing.T) {
		rr := doJSONWithAuth(router, "GET", "/tenants/me", nil, token)
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.TenantMeResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "System Test Tenant", resp.Name)
		assert.NotEmpty(t, resp.TenantID)
	})

	t.Run("401 without token", func(t *testing.T) {
		rr := doJSON(router, "GET", "/tenants/me", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func login(t *testing.T, router *gin.Engine, email, password string) string {
	t.Helper()
	rr := doJSON(router, "POST", "/auth/login", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.AccessToken
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	return doJSONWithAuth(router, method, path, body, "")
}

func doJSONWithAuth(router *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
