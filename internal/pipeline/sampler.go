package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/rpggio/seedsort/internal/domain/session"
)

// ErrInvalidSampleKey indicates an item id with nothing left after sanitizing.
var ErrInvalidSampleKey = errors.New("invalid sample key")

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// SanitizeKey maps an item id to a filesystem-safe key.
func SanitizeKey(itemID string) string {
	return unsafeKeyChars.ReplaceAllString(itemID, "_")
}

// Sink persists one sample artifact.
type Sink interface {
	Write(ctx context.Context, key string, payload []byte) error
}

// SampleRecorder is notified once a sample was persisted.
type SampleRecorder interface {
	RecordSample(sessionID, itemID string)
}

// Sampler writes sampled items to a Sink. Failures are logged and swallowed.
type Sampler struct {
	sink     Sink
	recorder SampleRecorder
	metrics  Metrics
	logger   *slog.Logger
}

// NewSampler creates a sampler.
func NewSampler(sink Sink, recorder SampleRecorder, metrics Metrics, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{sink: sink, recorder: recorder, metrics: metricsOrNoop(metrics), logger: logger}
}

// Persist writes the sample and records it on success. It reports whether
// the sample was recorded.
func (s *Sampler) Persist(ctx context.Context, sessionID, itemID string, outcome session.Outcome) bool {
	if err := s.persist(ctx, itemID, outcome); err != nil {
		s.metrics.SampleFailed()
		s.logger.Error("could not save sampled item", "session_id", sessionID, "item_id", itemID, "error", err)
		return false
	}
	s.metrics.SamplePersisted()
	s.recorder.RecordSample(sessionID, itemID)
	return true
}

func (s *Sampler) persist(ctx context.Context, itemID string, outcome session.Outcome) error {
	if itemID == "" {
		return ErrInvalidSampleKey
	}
	key := SanitizeKey(itemID)
	payload := fmt.Sprintf("Simulated image ID: %s, Label: %s", itemID, outcome)
	return s.sink.Write(ctx, key, []byte(payload))
}
