// Package tenants serves tenant metadata for the authenticated caller.
package tenants

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/flotilla-io/flotilla/internal/apperr"
)

var ErrTenantNotFound = errors.New("tenant not found")

type Tenant struct {
	TenantID  uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Store interface {
	GetTenant(ctx context.Context, tenantID uuid.UUID) (Tenant, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetMyTenant returns the caller's own tenant.
func (s *Service) GetMyTenant(ctx context.Context, tenantID uuid.UUID) (Tenant, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return Tenant{}, apperr.NotFound("tenant not found")
		}
		return Tenant{}, apperr.Internal("get tenant", err)
	}
	return tenant, nil
}
