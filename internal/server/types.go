// Package server provides the HTTP server for the PurpleStream API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"github.com/maauso/purplestream-api/internal/catalog"
	"github.com/maauso/purplestream-api/internal/identity"
)

// LoginRequest is the HTTP request body for logging in.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the HTTP response after a successful login.
type LoginResponse struct {
	// Token is the bearer token to send on authenticated requests.
	Token string `json:"token"`
	// User is the public profile of the logged-in user.
	User identity.Profile `json:"user"`
}

// UploadResponse is the HTTP response after a successful upload.
type UploadResponse struct {
	Success bool          `json:"success"`
	Video   catalog.Video `json:"video"`
}

// VideosResponse is the HTTP response for listing videos.
type VideosResponse struct {
	// Videos is newest first and never null.
	Videos []catalog.Video `json:"videos"`
}

// DeleteRequest is the HTTP request body for deleting a video.
// ID is untyped so a non-string value reads as an unknown video rather than
// a decoding error.
type DeleteRequest struct {
	ID any `json:"id"`
}

// SuccessResponse acknowledges an operation with no other result.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	OK bool `json:"ok"`
}
