package transport

import "github.com/rpggio/seedsort/internal/domain/session"

// StartSessionRequest is the body of POST /start-session.
type StartSessionRequest struct {
	SeedLot string `json:"seed_lot" validate:"required"`
}

// StopSessionRequest is the body of POST /stop-session.
type StopSessionRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// SendImageRequest is the body of POST /send-image.
type SendImageRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	ImageID   string `json:"image_id" validate:"required"`
}

type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type StopSessionResponse struct {
	Message string           `json:"message"`
	Session *session.Session `json:"session"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SampledImagesResponse struct {
	SampledImages []string `json:"sampled_images"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
