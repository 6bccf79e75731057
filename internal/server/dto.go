package server

import (
	"stageline/internal/domain"
)

// Request payloads

type CreateProjectRequest struct {
	Name          string `json:"name" minLength:"1"`
	Description   string `json:"description,omitempty"`
	StartDate     string `json:"start_date,omitempty" example:"2024-01-15"`
	EndDate       string `json:"end_date,omitempty" example:"2024-03-31"`
	ManagerUserID *int64 `json:"manager_user_id,omitempty"`
	CategoryID    *int64 `json:"category_id,omitempty"`
	AreaID        *int64 `json:"area_id,omitempty"`
}

type UpdateProjectRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	StartDate     *string `json:"start_date,omitempty"`
	EndDate       *string `json:"end_date,omitempty"`
	ManagerUserID *int64  `json:"manager_user_id,omitempty" doc:"0 clears the manager"`
	CategoryID    *int64  `json:"category_id,omitempty" doc:"0 clears the category"`
	AreaID        *int64  `json:"area_id,omitempty" doc:"0 clears the area"`
}

type CreateStageRequest struct {
	Name        string `json:"name" minLength:"1"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty" example:"#4caf50"`
	Status      string `json:"status,omitempty"`
}

type UpdateStageRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type MoveStageRequest struct {
	Direction string `json:"direction" example:"up" doc:"up swaps with ordinal+1 (toward the end of the board), down with ordinal-1"`
}

type CreateActivityRequest struct {
	Title            string `json:"title" minLength:"1"`
	Description      string `json:"description,omitempty"`
	Status           string `json:"status,omitempty" example:"pending" doc:"pending, todo, in_progress, review, completed or done"`
	Priority         string `json:"priority,omitempty" example:"medium"`
	AssignedToUserID *int64 `json:"assigned_to_user_id,omitempty"`
	StartDate        string `json:"start_date,omitempty"`
	EndDate          string `json:"end_date,omitempty"`
}

type UpdateActivityRequest struct {
	StageID           *int64  `json:"stage_id,omitempty"`
	Title             *string `json:"title,omitempty"`
	Description       *string `json:"description,omitempty"`
	Status            *string `json:"status,omitempty"`
	Priority          *string `json:"priority,omitempty"`
	AssignedToUserID  *int64  `json:"assigned_to_user_id,omitempty" doc:"0 unassigns"`
	StartDate         *string `json:"start_date,omitempty"`
	EndDate           *string `json:"end_date,omitempty"`
	ExecutedStartDate *string `json:"executed_start_date,omitempty" doc:"RFC3339; empty string clears"`
	ExecutedEndDate   *string `json:"executed_end_date,omitempty" doc:"RFC3339; empty string clears"`
}

type ActivityStatusRequest struct {
	Status string `json:"status" example:"in_progress"`
}

type UserRequest struct {
	Name   string `json:"name" minLength:"1"`
	Email  string `json:"email" format:"email"`
	Role   string `json:"role,omitempty" example:"member"`
	AreaID *int64 `json:"area_id,omitempty"`
}

type AreaRequest struct {
	Name        string `json:"name" minLength:"1"`
	Description string `json:"description,omitempty"`
}

type CategoryRequest struct {
	Name  string `json:"name" minLength:"1"`
	Color string `json:"color,omitempty"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

type DevLoginRequest struct {
	Email string `json:"email"`
}

// Response payloads

type APIKeyResponse struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at"`
	Key       string `json:"key,omitempty" doc:"Only returned on creation"`
}

type DevLoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type MeResponse struct {
	User        domain.User `json:"user"`
	Source      string      `json:"source"`
	Permissions []string    `json:"permissions"`
}

type bodyOut[T any] struct {
	Body T
}

func out[T any](v T) *bodyOut[T] {
	return &bodyOut[T]{Body: v}
}

func apiKeyResponse(k domain.APIKey, plaintext string) APIKeyResponse {
	return APIKeyResponse{ID: k.ID, UserID: k.UserID, Name: k.Name, CreatedAt: k.CreatedAt, Key: plaintext}
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
