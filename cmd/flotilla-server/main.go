package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WatchBeam/clock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/flotilla-io/flotilla/internal/agents"
	internalhttp "github.com/flotilla-io/flotilla/internal/api/http"
	"github.com/flotilla-io/flotilla/internal/auth"
	"github.com/flotilla-io/flotilla/internal/db"
	"github.com/flotilla-io/flotilla/internal/enrollment"
	"github.com/flotilla-io/flotilla/internal/servers"
	"github.com/flotilla-io/flotilla/internal/tenants"
)

var AppVersion string

func main() {
	InitConfig()

	slog.Info("Flotilla Server", "version", AppVersion)

	if err := db.RunMigrations(config.Database.Url); err != nil {
		slog.Error("Migrations failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.InitDB(ctx, config.Database.Url)
	if err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Seed(ctx, pool, config.Seed); err != nil {
		slog.Error("Seed failed", "error", err)
		os.Exit(1)
	}

	clk := clock.C
	services := &internalhttp.Services{
		AuthConfig: config.Auth,
		Auth:       auth.NewService(auth.NewPostgresStore(pool), config.Auth),
		Tenants:    tenants.NewService(tenants.NewPostgresStore(pool)),
		Servers:    servers.NewService(servers.NewPostgresStore(pool), clk),
		Enrollment: enrollment.NewService(enrollment.NewPostgresStore(pool), clk),
		Agents:     agents.NewService(agents.NewPostgresStore(pool), clk),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Http.Port),
		Handler: engine,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Shutdown complete")
}
