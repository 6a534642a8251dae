package systemtest

import (
	"context"
	"os"
	"testing"

	"github.com/WatchBeam/clock"
	"github.com/gin-gonic/gin"

	"github.com/flotilla-io/flotilla/internal/agents"
	internalhttp "github.com/flotilla-io/flotilla/internal/api/http"
	"github.com/flotilla-io/flotilla/internal/auth"
	"github.com/flotilla-io/flotilla/internal/db"
	"github.com/flotilla-io/flotilla/internal/enrollment"
	"github.com/flotilla-io/flotilla/internal/servers"
	"github.com/flotilla-io/flotilla/internal/tenants"
	"github.com/flotilla-io/flotilla/systemtest/postgres"
	"github.com/flotilla-io/flotilla/systemtest/tests"
)

const (
	adminEmail    = "admin@systemtest.local"
	adminPassword = "systemtest-password"
)

func TestSystemIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping system test in short mode")
	}
	if os.Getenv("SYSTEMTEST") == "" {
		t.Skip("set SYSTEMTEST=1 to run system tests (requires Docker)")
	}

	ctx := context.Background()

	container, err := postgres.StartPostgres(ctx, "flotilla", "flotilla", "flotilla_test")
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := postgres.TerminatePostgres(context.Background(), container); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	if err := db.RunMigrations(dbURL); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	pool, err := db.InitDB(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Seed(ctx, pool, db.SeedConfig{
		TenantName:    "System Test Tenant",
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	authConfig := auth.Config{
		SigningKey:         "systemtest-signing-key",
		Issuer:             "flotilla-systemtest",
		Audience:           "flotilla-api",
		AccessTokenMinutes: 15,
	}

	clk := clock.C
	services := &internalhttp.Services{
		AuthConfig: authConfig,
		Auth:       auth.NewService(auth.NewPostgresStore(pool), authConfig),
		Tenants:    tenants.NewService(tenants.NewPostgresStore(pool)),
		Servers:    servers.NewService(servers.NewPostgresStore(pool), clk),
		Enrollment: enrollment.NewService(enrollment.NewPostgresStore(pool), clk),
		Agents:     agents.NewService(agents.NewPostgresStore(pool), clk),
	}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	internalhttp.SetupRoute(engine, services)

	t.Run("HealthCheck", func(t *testing.T) { tests.TestHealthCheck(t, engine) })
	t.Run("Login", func(t *testing.T) { tests.TestLogin(t, engine, adminEmail, adminPassword) })
	t.Run("Tenant", func(t *testing.T) { tests.TestTenantMe(t, engine, adminEmail, adminPassword) })
	t.Run("Servers", func(t *testing.T) { tests.TestServerCRUD(t, engine, adminEmail, adminPassword) })
	t.Run("Enrollment", func(t *testing.T) { tests.TestEnrollmentFlow(t, engine, adminEmail, adminPassword) })
}
