// Package models contains the request and response DTOs of the HTTP API.
package models

import (
	"encoding/json"
	"time"

	dbmodels "github.com/ad-tracker/thumbnail-service-go/internal/db/models"

	"github.com/google/uuid"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Country  string `json:"country"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token.
type LoginResponse struct {
	Token string `json:"token"`
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse carries the reset link only while links are echoed
// to the caller.
type ForgotPasswordResponse struct {
	ResetURL string `json:"resetUrl,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password/:token.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every error. Error is a stable machine code,
// Message is for humans.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ThumbnailResponse is the public shape of a thumbnail record.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ThumbnailResponse struct {
	ID        uuid.UUID `json:"id"`
	User      uuid.UUID `json:"user"`
	VideoName string    `json:"videoName"`
	Version   string    `json:"version"`
	Image     string    `json:"image"`
	Paid      bool      `json:"paid"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromThumbnail converts a stored record.
func FromThumbnail(t *dbmodels.Thumbnail) ThumbnailResponse {
	return ThumbnailResponse{
		ID:        t.ID,
		User:      t.AccountID,
		VideoName: t.VideoName,
		Version:   t.Version,
		Image:     t.Image,
		Paid:      t.Paid,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// ThumbnailPatchRequest is the body of PUT and PATCH /api/thumbnails/:id.
// The raw fields exist only so attempts to change them can be rejected.
type ThumbnailPatchRequest struct {
	VideoName *string `json:"videoName"`
	Version   *string `json:"version"`
	Paid      *bool   `json:"paid"`

	ID    json.RawMessage `json:"id,omitempty"`
	User  json.RawMessage `json:"user,omitempty"`
	Image json.RawMessage `json:"image,omitempty"`
}

// ImmutableFields lists the read-only fields present in the request.
func (r ThumbnailPatchRequest) ImmutableFields() []string {
	var fields []string
	if r.ID != nil {
		fields = append(fields, "id")
	}
	if r.User != nil {
		fields = append(fields, "user")
	}
	if r.Image != nil {
		fields = append(fields, "image")
	}
	return fields
}

// Patch returns the mutable part of the request.
func (r ThumbnailPatchRequest) Patch() dbmodels.ThumbnailPatch {
	return dbmodels.ThumbnailPatch{
		VideoName: r.VideoName,
		Version:   r.Version,
		Paid:      r.Paid,
	}
}
