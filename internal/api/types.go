// Package api provides a typed HTTP client for the notebook document service.
// It covers the authentication, document listing and document upload endpoints
// consumed by the upload verification workflow, plus the status, delete and
// health operations exposed by the same service.
package api

import (
	"encoding/json"
	"errors"
	"time"
)

// Credentials are presented once to the login endpoint and never stored.
type Credentials struct {
	Identifier string `json:"identifier" validate:"required"`
	Secret     string `json:"secret" validate:"required"`
}

// Session holds the opaque token issued by the authentication endpoint.
// It is scoped to a single workflow invocation.
type Session struct {
	Token string
}

// Submission is a document payload prepared by the caller and consumed
// exactly once by the upload endpoint.
type Submission struct {
	Payload     []byte `validate:"required"`
	ContentType string `validate:"required"`
	Filename    string `validate:"required"`
}

// Document processing statuses reported by the service.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// DocumentRecord is the service's representation of one submitted document.
// All fields are passed through unmodified.
type DocumentRecord struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Status      string    `json:"status"`
	FileSize    int64     `json:"file_size"`
	GCSPath     string    `json:"gcs_path,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// ListingMetadata carries pagination details alongside a document listing.
type ListingMetadata struct {
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// DocumentListing is the response of the listing endpoint, fetched fresh on
// every call.
type DocumentListing struct {
	Documents []DocumentRecord `json:"documents"`
	Metadata  *ListingMetadata `json:"metadata,omitempty"`
}

// UploadResponse wraps the record returned by the upload endpoint.
type UploadResponse struct {
	Document DocumentRecord `json:"document"`
}

// TokenPayload is the token object issued on login.
type TokenPayload struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

// UserPayload is the user object returned alongside a nested token response.
type UserPayload struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// StatusInfo is the response of the per-document status endpoint.
type StatusInfo struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	Progress      float64 `json:"progress"`
	ChunksCreated int     `json:"chunks_created"`
}

// ServiceHealth is the health of one backing subsystem.
type ServiceHealth struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// HealthReport is the response of the service health endpoint.
type HealthReport struct {
	Status   string                   `json:"status"`
	Services map[string]ServiceHealth `json:"services,omitempty"`
}

// ErrNoToken is returned when a login response carries neither accepted
// token shape.
var ErrNoToken = errors.New("login response contains no session token")

// parseSessionToken extracts the access token from a login response body.
// Two response shapes are accepted, tried in order: a nested token object
// ({user, token: {access_token}}) and a flat field ({access_token}).
func parseSessionToken(body []byte) (string, error) {
	var nested struct {
		Token *TokenPayload `json:"token"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Token != nil && nested.Token.AccessToken != "" {
		return nested.Token.AccessToken, nil
	}

	var flat TokenPayload
	if err := json.Unmarshal(body, &flat); err == nil && flat.AccessToken != "" {
		return flat.AccessToken, nil
	}

	return "", ErrNoToken
}
