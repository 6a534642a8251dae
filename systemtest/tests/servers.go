package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotilla-io/flotilla/internal/api/http/dto"
)

func TestServerCRUD(t *testing.T, router *gin.Engine, adminEmail, adminPassword string) {
	token := login(t, router, adminEmail, adminPassword)

	var created dto.ServerResponse

	t.Run("create", func(t *testing.T) {
		body := dto.CreateServerRequest{
			Name:        "db-primary",
			Hostname:    "db-primary.internal",
			Description: "primary database host",
			Tags:        []string{"prod", "database"},
		}
		rr := doJSONWithAuth(router, "POST", "/servers", body, token)
		assert.Equal(t, http.StatusCreated, rr.Code)

		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
		assert.Equal(t, "db-primary", created.Name)
		assert.Equal(t, "Active", created.Status)
		assert.ElementsMatch(t, []string{"prod", "database"}, created.Tags)
	})

	t.Run("create duplicate name conflicts", func(t *testing.T) {
		body := dto.CreateServerRequest{Name: "DB-Primary"}
		rr := doJSONWithAuth(router, "POST", "/servers", body, token)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("get", func(t *testing.T) {
		rr := doJSONWithAuth(router, "GET", "/servers/"+created.ServerID, nil, token)
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ServerResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, created.ServerID, resp.ServerID)
	})

	t.Run("update", func(t *testing.T) {
		description := "primary database host (rack 4)"
		body := dto.UpdateServerRequest{Description: &description}
		rr := doJSONWithAuth(router, "PUT", "/servers/"+created.ServerID, body, token)
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ServerResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, description, resp.Description)
		assert.Equal(t, "db-primary", resp.Name)
	})

	t.Run("list with tag filter", func(t *testing.T) {
		rr := doJSONWithAuth(router, "GET", "/servers?tags=database&tags_mode=all", nil, token)
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ListServersResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Servers)
		for _, server := range resp.Servers {
			assert.Contains(t, server.Tags, "database")
		}
	})

	t.Run("401 without token", func(t *testing.T) {
		rr := doJSON(router, "GET", "/servers", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
