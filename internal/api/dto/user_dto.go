package dto

import (
	"time"

	"github.com/spec-kit/user-service/internal/domain"
)

// CreateUserRequest is the body of POST /api/user/create-user.
type CreateUserRequest struct {
	FullName string `json:"fullName" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateUserRequest is the body of PUT /api/user/update-user/:id. Absent fields stay unchanged.
type UpdateUserRequest struct {
	FullName *string `json:"fullName" validate:"omitnil,notblank"`
	Email    *string `json:"email" validate:"omitnil,email"`
	Password *string `json:"password" validate:"omitnil,min=6"`
}

// UserIDParam binds the :id path segment.
type UserIDParam struct {
	ID string `params:"id" validate:"required,uuid_rfc4122"`
}

// UserResponse is the public user shape. It has no password or version field.
type UserResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUserResponse maps a profile to its wire form.
func NewUserResponse(p domain.Profile) UserResponse {
	return UserResponse{
		ID:        p.ID,
		FullName:  p.FullName,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// NewUserResponses maps a page of profiles. The result is never nil.
func NewUserResponses(ps []domain.Profile) []UserResponse {
	out := make([]UserResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, NewUserResponse(p))
	}
	return out
}

// Envelope wraps every successful response.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the body of every failed response.
type ErrorResponse struct {
	Message    string `json:"message"`
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
}
