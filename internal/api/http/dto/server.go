package dto

import "time"

type CreateServerRequest struct {
	ProjectID     string   `json:"project_id"`
	EnvironmentID string   `json:"environment_id"`
	Name          string   `json:"name" binding:"required"`
	Hostname      string   `json:"hostname"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	Status        string   `json:"status"`
}

type UpdateServerRequest struct {
	ProjectID     *string  `json:"project_id"`
	EnvironmentID *string  `json:"environment_id"`
	Name          *string  `json:"name"`
	Hostname      *string  `json:"hostname"`
	Description   *string  `json:"description"`
	Tags          []string `json:"tags"`
	Status        *string  `json:"status"`
}

type ListServersRequest struct {
	ProjectID     string `form:"project_id"`
	EnvironmentID string `form:"environment_id"`
	Status        string `form:"status"`
	Search        string `form:"search"`
	Tags          string `form:"tags"` // comma separated
	TagsMode      string `form:"tags_mode"`
	SortBy        string `form:"sort_by"`
	SortDir       string `form:"sort_dir"`
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
}

type ServerResponse struct {
	ServerID      string    `json:"server_id"`
	ProjectID     string    `json:"project_id,omitempty"`
	EnvironmentID string    `json:"environment_id,omitempty"`
	Name          string    `json:"name"`
	Hostname      string    `json:"hostname,omitempty"`
	Description   string    `json:"description,omitempty"`
	Tags          []string  `json:"tags"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ListServersResponse struct {
	Servers    []ServerResponse `json:"servers"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	Total      int64            `json:"total"`
	TotalPages int              `json:"total_pages"`
}
