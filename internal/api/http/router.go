package http

import (
	"github.com/gin-gonic/gin"

	"github.com/flotilla-io/flotilla/internal/agents"
	"github.com/flotilla-io/flotilla/internal/api/http/handler"
	"github.com/flotilla-io/flotilla/internal/api/http/middleware"
	"github.com/flotilla-io/flotilla/internal/auth"
	"github.com/flotilla-io/flotilla/internal/enrollment"
	"github.com/flotilla-io/flotilla/internal/servers"
	"github.com/flotilla-io/flotilla/internal/tenants"
)

type Services struct {
	AuthConfig auth.Config
	Auth       *auth.Service
	Tenants    *tenants.Service
	Servers    *servers.Service
	Enrollment *enrollment.Service
	Agents     *agents.Service
}

// SetupRoute wires all handlers onto the engine. The enroll endpoint is the
// only mutating route outside JWT auth: possession of a valid enrollment
// token is its credential.
func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler()
	engine.GET("/health", healthHandler.Check)

	authHandler := handler.NewAuthHandler(srvs.Auth)
	engine.POST("/auth/login", authHandler.Login)

	enrollmentHandler := handler.NewEnrollmentHandler(srvs.Enrollment, srvs.Agents)
	engine.POST("/agents/enroll", enrollmentHandler.Enroll)

	authed := engine.Group("/", middleware.JWTAuth(srvs.AuthConfig))

	tenantsHandler := handler.NewTenantsHandler(srvs.Tenants)
	authed.GET("/tenants/me", tenantsHandler.GetMyTenant)

	serversHandler := handler.NewServersHandler(srvs.Servers)
	authed.GET("/servers", serversHandler.ListServers)
	authed.GET("/servers/:id", serversHandler.GetServer)

	writes := authed.Group("/", middleware.RequireRoles("Owner", "Admin", "Administrator"))
	writes.POST("/servers", serversHandler.CreateServer)
	writes.PUT("/servers/:id", serversHandler.UpdateServer)

	authed.POST("/servers/:id/enrollment-tokens", enrollmentHandler.IssueToken)

	agentsHandler := handler.NewAgentsHandler(srvs.Agents)
	authed.GET("/servers/:id/agents", agentsHandler.ListAgentsByServer)
	authed.GET("/agents/:id", agentsHandler.GetAgent)
}
