// Package servers manages the tenant-owned server inventory that agents
// enroll against.
package servers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/WatchBeam/clock"
	"github.com/google/uuid"

	"github.com/flotilla-io/flotilla/internal/apperr"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxTags         = 20
)

var (
	ErrServerNotFound  = errors.New("server not found")
	ErrServerNameTaken = errors.New("server name already taken")
)

var sortColumns = map[string]bool{
	"name":       true,
	"status":     true,
	"created_at": true,
	"updated_at": true,
}

// Store is the persistence boundary for servers.
type Store interface {
	CreateServer(ctx context.Context, server Server) error
	GetServer(ctx context.Context, tenantID, serverID uuid.UUID) (Server, error)
	UpdateServer(ctx context.Context, server Server) error
	ListServers(ctx context.Context, tenantID uuid.UUID, query ListQuery) ([]Server, int64, error)
}

type Service struct {
	store Store
	clock clock.Clock
}

func NewService(store Store, clk clock.Clock) *Service {
	return &Service{store: store, clock: clk}
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, input CreateServerInput) (Server, error) {
	name := strings.TrimSpace(input.Name)
	if len(name) < 2 || len(name) > 100 {
		return Server{}, apperr.Validation("name length must be between 2 and 100")
	}
	if len(input.Tags) > maxTags {
		return Server{}, apperr.Validation("at most 20 tags allowed")
	}

	status, ok := normalizeStatus(input.Status)
	if !ok {
		return Server{}, apperr.Validation("invalid status, allowed: Active, Inactive")
	}
	if status == "" {
		status = "Active"
	}

	now := s.clock.Now()
	server := Server{
		ServerID:      uuid.New(),
		TenantID:      tenantID,
		ProjectID:     input.ProjectID,
		EnvironmentID: input.EnvironmentID,
		Name:          name,
		Hostname:      strings.TrimSpace(input.Hostname),
		Description:   strings.TrimSpace(input.Description),
		Tags:          normalizeTags(input.Tags),
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateServer(ctx, server); err != nil {
		if errors.Is(err, ErrServerNameTaken) {
			return Server{}, apperr.Conflict("server name already exists")
		}
		return Server{}, apperr.Internal("create server", err)
	}

	slog.Info("Server created", "server_id", server.ServerID, "tenant_id", tenantID, "name", name)
	return server, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, serverID uuid.UUID) (Server, error) {
	server, err := s.store.GetServer(ctx, tenantID, serverID)
	if err != nil {
		if errors.Is(err, ErrServerNotFound) {
			return Server{}, apperr.NotFound("server not found")
		}
		return Server{}, apperr.Internal("get server", err)
	}
	return server, nil
}

func (s *Service) Update(ctx context.Context, tenantID, serverID uuid.UUID, input UpdateServerInput) (Server, error) {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len(name) < 2 || len(name) > 100 {
			return Server{}, apperr.Validation("name length must be between 2 and 100")
		}
	}
	if len(input.Tags) > maxTags {
		return Server{}, apperr.Validation("at most 20 tags allowed")
	}

	server, err := s.store.GetServer(ctx, tenantID, serverID)
	if err != nil {
		if errors.Is(err, ErrServerNotFound) {
			return Server{}, apperr.NotFound("server not found")
		}
		return Server{}, apperr.Internal("get server", err)
	}

	if input.ProjectID != nil {
		server.ProjectID = input.ProjectID
	}
	if input.EnvironmentID != nil {
		server.EnvironmentID = input.EnvironmentID
	}
	if input.Name != nil {
		server.Name = strings.TrimSpace(*input.Name)
	}
	if input.Hostname != nil {
		server.Hostname = strings.TrimSpace(*input.Hostname)
	}
	if input.Description != nil {
		server.Description = strings.TrimSpace(*input.Description)
	}
	if input.Tags != nil {
		server.Tags = normalizeTags(input.Tags)
	}
	if input.Status != nil {
		status, ok := normalizeStatus(*input.Status)
		if !ok || status == "" {
			return Server{}, apperr.Validation("invalid status, allowed: Active, Inactive")
		}
		server.Status = status
	}
	server.UpdatedAt = s.clock.Now()

	if err := s.store.UpdateServer(ctx, server); err != nil {
		if errors.Is(err, ErrServerNameTaken) {
			return Server{}, apperr.Conflict("server name already exists")
		}
		return Server{}, apperr.Internal("update server", err)
	}
	return server, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, query ListQuery) (PagedResult, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize == 0 {
		query.PageSize = defaultPageSize
	}
	if query.PageSize < 1 || query.PageSize > maxPageSize {
		return PagedResult{}, apperr.Validation("page_size must be between 1 and 100")
	}

	if query.SortBy == "" {
		query.SortBy = "created_at"
	}
	if !sortColumns[query.SortBy] {
		return PagedResult{}, apperr.Validation("invalid sort_by, allowed: name, status, created_at, updated_at")
	}
	switch strings.ToLower(query.SortDir) {
	case "":
		query.SortDir = "desc"
	case "asc", "desc":
		query.SortDir = strings.ToLower(query.SortDir)
	default:
		return PagedResult{}, apperr.Validation("invalid sort_dir, allowed: asc, desc")
	}

	if query.Status != "" {
		status, ok := normalizeStatus(query.Status)
		if !ok {
			return PagedResult{}, apperr.Validation("invalid status, allowed: Active, Inactive")
		}
		query.Status = status
	}
	if query.TagsMode == "" {
		query.TagsMode = TagsAny
	}
	query.Tags = normalizeTags(query.Tags)
	query.Search = strings.TrimSpace(query.Search)

	items, total, err := s.store.ListServers(ctx, tenantID, query)
	if err != nil {
		return PagedResult{}, apperr.Internal("list servers", err)
	}

	totalPages := int((total + int64(query.PageSize) - 1) / int64(query.PageSize))
	return PagedResult{
		Items:      items,
		Page:       query.Page,
		PageSize:   query.PageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// normalizeStatus maps a status to its canonical casing. Returns ok=false for
// unknown values; an empty input is returned as-is for the caller to default.
func normalizeStatus(status string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "":
		return "", true
	case "active":
		return "Active", true
	case "inactive":
		return "Inactive", true
	default:
		return "", false
	}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}
