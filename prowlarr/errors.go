package prowlarr

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid prowlarr configuration")
	// ErrNoConnection indicates connection failure
	ErrNoConnection = errors.New("failed to connect to prowlarr")
)

// APIError represents a Prowlarr API error
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("prowlarr API error: status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
