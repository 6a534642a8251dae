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

// TestEnrollmentFlow drives the full agent lifecycle against a real database:
// create a server, issue a token, enroll, verify the agent is visible, and
// verify the consumed token is rejected on reuse.
func TestEnrollmentFlow(t *testing.T, router *gin.Engine, adminEmail, adminPassword string) {
	token := login(t, router, adminEmail, adminPassword)

	rr := doJSONWithAuth(router, "POST", "/servers", dto.CreateServerRequest{Name: "edge-gw-01"}, token)
	require.Equal(t, http.StatusCreated, rr.Code)
	var server dto.ServerResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &server))

	var issued dto.IssueEnrollmentTokenResponse

	t.Run("issue token", func(t *testing.T) {
		body := dto.IssueEnrollmentTokenRequest{TTLSeconds: 600}
		rr := doJSONWithAuth(router, "POST", "/servers/"+server.ServerID+"/enrollment-tokens", body, token)
		assert.Equal(t, http.StatusCreated, rr.Code)

		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &issued))
		assert.NotEmpty(t, issued.Token)
	})

	t.Run("issue token 401 without auth", func(t *testing.T) {
		body := dto.IssueEnrollmentTokenRequest{TTLSeconds: 600}
		rr := doJSON(router, "POST", "/servers/"+server.ServerID+"/enrollment-tokens", body)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	var enrolled dto.AgentEnrollResponse

	t.Run("enroll", func(t *testing.T) {
		body := dto.AgentEnrollRequest{
			Token:        issued.Token,
			DisplayName:  "edge-gw-01-agent",
			AgentVersion: "1.0.0",
			Os:           "linux",
			Arch:         "arm64",
			Capabilities: json.RawMessage(`{"exec":true,"metrics":["cpu","mem"]}`),
		}
		rr := doJSON(router, "POST", "/agents/enroll", body)
		assert.Equal(t, http.StatusCreated, rr.Code)

		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &enrolled))
		assert.NotEmpty(t, enrolled.AgentID)
		assert.NotEmpty(t, enrolled.AccessKeyID)
		assert.NotEmpty(t, enrolled.Secret)
	})

	t.Run("token reuse rejected", func(t *testing.T) {
		body := dto.AgentEnrollRequest{
			Token:        issued.Token,
			DisplayName:  "second-agent",
			AgentVersion: "1.0.0",
			Os:           "linux",
			Arch:         "amd64",
		}
		rr := doJSON(router, "POST", "/agents/enroll", body)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid or expired enrollment token")
	})

	t.Run("agent visible on server", func(t *testing.T) {
		rr := doJSONWithAuth(router, "GET", "/servers/"+server.ServerID+"/agents", nil, token)
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ListAgentsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Agents, 1)
		assert.Equal(t, enrolled.AgentID, resp.Agents[0].AgentID)
		assert.Equal(t, "active", resp.Agents[0].Status)
	})

	t.Run("agent readable by id", func(t *testing.T) {
		rr := doJSONWithAuth(router, "GET", "/agents/"+enrolled.AgentID, nil, token)
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.AgentResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, server.ServerID, resp.ServerID)
		assert.JSONEq(t, `{"exec":true,"metrics":["cpu","mem"]}`, string(resp.Capabilities))
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		body := dto.AgentEnrollRequest{
			Token:        "bm90LXJlYWw",
			DisplayName:  "ghost",
			AgentVersion: "1.0.0",
			Os:           "linux",
			Arch:         "amd64",
		}
		rr := doJSON(router, "POST", "/agents/enroll", body)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
