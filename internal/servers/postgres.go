package servers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresStore implements Store against the servers table. Tags are stored
// as a text[] column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateServer(ctx context.Context, server Server) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO servers
			(server_id, tenant_id, project_id, environment_id, name, hostname,
			 description, tags, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		server.ServerID, server.TenantID, server.ProjectID, server.EnvironmentID,
		server.Name, server.Hostname, server.Description, server.Tags,
		server.Status, server.CreatedAt, server.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrServerNameTaken
		}
		return fmt.Errorf("insert server: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetServer(ctx context.Context, tenantID, serverID uuid.UUID) (Server, error) {
	var srv Server
	err := s.pool.QueryRow(ctx, `
		SELECT server_id, tenant_id, project_id, environment_id, name, hostname,
		       description, tags, status, created_at, updated_at
		FROM servers
		WHERE tenant_id = $1 AND server_id = $2`,
		tenantID, serverID,
	).Scan(&srv.ServerID, &srv.TenantID, &srv.ProjectID, &srv.EnvironmentID,
		&srv.Name, &srv.Hostname, &srv.Description, &srv.Tags, &srv.Status,
		&srv.CreatedAt, &srv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Server{}, ErrServerNotFound
		}
		return Server{}, fmt.Errorf("query server: %w", err)
	}
	return srv, nil
}

func (s *PostgresStore) UpdateServer(ctx context.Context, server Server) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE servers
		SET project_id = $3, environment_id = $4, name = $5, hostname = $6,
		    description = $7, tags = $8, status = $9, updated_at = $10
		WHERE tenant_id = $1 AND server_id = $2`,
		server.TenantID, server.ServerID, server.ProjectID, server.EnvironmentID,
		server.Name, server.Hostname, server.Description, server.Tags,
		server.Status, server.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrServerNameTaken
		}
		return fmt.Errorf("update server: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServerNotFound
	}
	return nil
}

// ListServers builds the filter dynamically; the sort column and direction
// were validated against allow-lists by the service, never interpolated from
// raw input.
func (s *PostgresStore) ListServers(ctx context.Context, tenantID uuid.UUID, query ListQuery) ([]Server, int64, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if query.ProjectID != nil {
		where = append(where, "project_id = "+arg(*query.ProjectID))
	}
	if query.EnvironmentID != nil {
		where = append(where, "environment_id = "+arg(*query.EnvironmentID))
	}
	if query.Status != "" {
		where = append(where, "status = "+arg(query.Status))
	}
	if query.Search != "" {
		pattern := "%" + strings.ToLower(query.Search) + "%"
		p := arg(pattern)
		where = append(where,
			fmt.Sprintf("(lower(name) LIKE %s OR lower(hostname) LIKE %s OR lower(description) LIKE %s)", p, p, p))
	}
	if len(query.Tags) > 0 {
		if query.TagsMode == TagsAll {
			where = append(where, "tags @> "+arg(query.Tags))
		} else {
			where = append(where, "tags && "+arg(query.Tags))
		}
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	if err := s.pool.QueryRow(ctx,
		"SELECT count(*) FROM servers WHERE "+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count servers: %w", err)
	}

	offset := (query.Page - 1) * query.PageSize
	sql := fmt.Sprintf(`
		SELECT server_id, tenant_id, project_id, environment_id, name, hostname,
		       description, tags, status, created_at, updated_at
		FROM servers
		WHERE %s
		ORDER BY %s %s
		LIMIT %s OFFSET %s`,
		whereClause, query.SortBy, strings.ToUpper(query.SortDir),
		arg(query.PageSize), arg(offset))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query servers: %w", err)
	}
	defer rows.Close()

	var result []Server
	for rows.Next() {
		var srv Server
		if err := rows.Scan(&srv.ServerID, &srv.TenantID, &srv.ProjectID,
			&srv.EnvironmentID, &srv.Name, &srv.Hostname, &srv.Description,
			&srv.Tags, &srv.Status, &srv.CreatedAt, &srv.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan server: %w", err)
		}
		result = append(result, srv)
	}
	return result, total, rows.Err()
}
