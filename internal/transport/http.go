package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/rpggio/seedsort/internal/engine"
)

// SessionService defines the session operations served over HTTP.
type SessionService interface {
	StartSession(ctx context.Context, label string) (*session.Session, error)
	StopSession(ctx context.Context, id string) (*session.Session, error)
	SubmitItem(ctx context.Context, id, itemID string) error
	GetSessionStats(ctx context.Context, id string) (*engine.Stats, error)
	SampledItems(ctx context.Context, id string) ([]string, error)
	ListHistoricalSessions(ctx context.Context) ([]session.Summary, error)
}

// Options holds optional handlers mounted next to the REST API.
type Options struct {
	MCP     http.Handler
	Metrics http.Handler
	Logger  *slog.Logger
	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string
}

// Server wires HTTP handlers.
type Server struct {
	sessions SessionService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(sessions SessionService, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
	}))
	r.Use(RequestLogger(logger))

	srv := &Server{
		sessions: sessions,
		validate: newValidator(),
		logger:   logger,
	}

	r.Post("/start-session", srv.handleStartSession)
	r.Post("/stop-session", srv.handleStopSession)
	r.Post("/send-image", srv.handleSendImage)
	r.Get("/stats/{sessionID}", srv.handleStats)
	r.Get("/sampled-images/{sessionID}", srv.handleSampledImages)
	r.Get("/sessions", srv.handleListSessions)
	r.Get("/health", srv.handleHealth)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	sess, err := s.sessions.StartSession(r.Context(), req.SeedLot)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, StartSessionResponse{
		SessionID: sess.ID,
		Message:   fmt.Sprintf("Sorting session started for seed lot '%s'", sess.Label),
	})
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	var req StopSessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	sess, err := s.sessions.StopSession(r.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, "Session not found or already stopped.")
			return
		}
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StopSessionResponse{
		Message: fmt.Sprintf("Session %s stopped.", sess.ID),
		Session: sess,
	})
}

func (s *Server) handleSendImage(w http.ResponseWriter, r *http.Request) {
	var req SendImageRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.sessions.SubmitItem(r.Context(), req.SessionID, req.ImageID); err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, "Invalid or inactive session.")
			return
		}
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, MessageResponse{Message: "Image received."})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sessions.GetSessionStats(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSampledImages(w http.ResponseWriter, r *http.Request) {
	items, err := s.sessions.SampledItems(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []string{}
	}
	writeJSON(w, http.StatusOK, SampledImagesResponse{SampledImages: items})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.ListHistoricalSessions(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if sessions == nil {
		sessions = []session.Summary{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusNotFound:
		writeError(w, status, "Session not found.")
	case http.StatusInternalServerError:
		s.logger.Error("request failed", "error", err)
		writeError(w, status, "internal error")
	default:
		writeError(w, status, err.Error())
	}
}
