package servers

import (
	"time"

	"github.com/google/uuid"
)

type Server struct {
	ServerID      uuid.UUID
	TenantID      uuid.UUID
	ProjectID     *uuid.UUID
	EnvironmentID *uuid.UUID
	Name          string
	Hostname      string
	Description   string
	Tags          []string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CreateServerInput struct {
	ProjectID     *uuid.UUID
	EnvironmentID *uuid.UUID
	Name          string
	Hostname      string
	Description   string
	Tags          []string
	Status        string
}

// UpdateServerInput applies a partial update; nil fields are left unchanged.
type UpdateServerInput struct {
	ProjectID     *uuid.UUID
	EnvironmentID *uuid.UUID
	Name          *string
	Hostname      *string
	Description   *string
	Tags          []string
	Status        *string
}

// TagsMode selects whether a tag filter matches servers carrying any of the
// tags or all of them.
type TagsMode string

const (
	TagsAny TagsMode = "any"
	TagsAll TagsMode = "all"
)

type ListQuery struct {
	ProjectID     *uuid.UUID
	EnvironmentID *uuid.UUID
	Status        string
	Search        string
	Tags          []string
	TagsMode      TagsMode
	SortBy        string
	SortDir       string
	Page          int
	PageSize      int
}

type PagedResult struct {
	Items      []Server
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}
