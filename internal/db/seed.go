package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flotilla-io/flotilla/internal/users"
)

type SeedConfig struct {
	TenantName    string `mapstructure:"tenant_name"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// Seed bootstraps the first tenant with its role set and an admin user
// holding Owner and Admin. A database that already has a tenant is considered
// seeded and left untouched.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg SeedConfig) error {
	var seeded bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants)`).Scan(&seeded); err != nil {
		return fmt.Errorf("check seed state: %w", err)
	}
	if seeded {
		return nil
	}

	passwordHash, err := users.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now()
	tenantID := uuid.New()
	adminUserID := uuid.New()

	roleIDs := map[string]uuid.UUID{
		"Owner":  uuid.New(),
		"Admin":  uuid.New(),
		"Viewer": uuid.New(),
	}

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tenants (tenant_id, name, created_at) VALUES ($1, $2, $3)`,
			tenantID, cfg.TenantName, now); err != nil {
			return fmt.Errorf("insert tenant: %w", err)
		}

		for code, roleID := range roleIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO roles (role_id, tenant_id, code, created_at) VALUES ($1, $2, $3, $4)`,
				roleID, tenantID, code, now); err != nil {
				return fmt.Errorf("insert role %s: %w", code, err)
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO users (user_id, tenant_id, email, password_hash, is_active, created_at)
			VALUES ($1, $2, $3, $4, true, $5)`,
			adminUserID, tenantID, cfg.AdminEmail, passwordHash, now); err != nil {
			return fmt.Errorf("insert admin user: %w", err)
		}

		for _, code := range []string{"Owner", "Admin"} {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_roles (tenant_id, user_id, role_id, created_at)
				VALUES ($1, $2, $3, $4)`,
				tenantID, adminUserID, roleIDs[code], now); err != nil {
				return fmt.Errorf("insert user role %s: %w", code, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Seeded initial tenant",
		"tenant_id", tenantID,
		"tenant_name", cfg.TenantName,
		"admin_email", cfg.AdminEmail)
	return nil
}
