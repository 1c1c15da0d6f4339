// Package client is a REST client for the seedsort HTTP API.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rpggio/seedsort/internal/domain/session"
)

// ErrNotFound indicates the server does not know the session.
var ErrNotFound = errors.New("session not found")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Stats mirrors the stats response.
type Stats struct {
	SessionID     string     `json:"session_id"`
	SeedLot       string     `json:"seed_lot"`
	Status        string     `json:"status"`
	Accepted      int64      `json:"accepted"`
	Rejected      int64      `json:"rejected"`
	Sampled       int64      `json:"sampled"`
	SampledImages []string   `json:"sampled_images"`
	Pending       int        `json:"pending"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
}

// Processed returns accepted plus rejected.
func (s Stats) Processed() int64 {
	return s.Accepted + s.Rejected
}

type errorBody struct {
	Error string `json:"error"`
}

// Client talks to one seedsort server.
type Client struct {
	http *resty.Client
}

// New creates a client for baseURL, e.g. http://localhost:8000.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "seedsort-client").
		SetLogger(restyLogger{logger}).
		SetError(&errorBody{})

	// Retry connection failures only; HTTP errors are answers.
	c.SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			return err != nil
		})

	c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("api response",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"duration", resp.Time(),
		)
		return nil
	})

	return &Client{http: c}
}

// StartSession opens a session and returns its id.
func (c *Client) StartSession(ctx context.Context, seedLot string) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"seed_lot": seedLot}).
		SetResult(&out).
		Post("/start-session")
	if err := check(resp, err); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

// SendImage submits one image to an active session.
func (c *Client) SendImage(ctx context.Context, sessionID, imageID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"session_id": sessionID, "image_id": imageID}).
		Post("/send-image")
	return check(resp, err)
}

// StopSession stops intake for a session.
func (c *Client) StopSession(ctx context.Context, sessionID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"session_id": sessionID}).
		Post("/stop-session")
	return check(resp, err)
}

// Stats fetches live or historical counters for a session.
func (c *Client) Stats(ctx context.Context, sessionID string) (*Stats, error) {
	var out Stats
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", sessionID).
		SetResult(&out).
		Get("/stats/{id}")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// SampledImages lists the sampled image ids for a session.
func (c *Client) SampledImages(ctx context.Context, sessionID string) ([]string, error) {
	var out struct {
		SampledImages []string `json:"sampled_images"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", sessionID).
		SetResult(&out).
		Get("/sampled-images/{id}")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.SampledImages, nil
}

// Sessions lists finished sessions.
func (c *Client) Sessions(ctx context.Context) ([]session.Summary, error) {
	var out []session.Summary
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/sessions")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	msg := resp.String()
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		msg = body.Error
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}

// restyLogger routes resty's internal logging through slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
