package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/rpggio/seedsort/internal/engine"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors map to nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, session.ErrNotFound):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "session not found", RecoveryHint: "Check the session id or list_sessions"}
	case errors.Is(err, session.ErrUnknownSession):
		return &APIError{Code: "UNKNOWN_SESSION", Message: "session is not active", RecoveryHint: "Start a new session"}
	case errors.Is(err, session.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Check required arguments"}
	case errors.Is(err, engine.ErrShuttingDown):
		return &APIError{Code: "SHUTTING_DOWN", Message: "server is draining sessions", RecoveryHint: "Retry after restart"}
	default:
		return nil
	}
}
