// Package engine owns the session lifecycle: it starts a scheduler per
// session, accepts items, and moves finished sessions into the ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/rpggio/seedsort/internal/queue"
	"github.com/rpggio/seedsort/internal/repository"
	"github.com/rpggio/seedsort/internal/scheduler"
)

// Metrics is the lifecycle instrumentation the engine reports to.
type Metrics interface {
	scheduler.BatchMetrics
	ItemSubmitted()
	SessionStarted()
	SessionEnded()
}

// Options configures optional engine collaborators.
type Options struct {
	Policy  scheduler.Policy
	Metrics Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// Stats is a session snapshot plus its current queue depth.
type Stats struct {
	session.Session
	Pending int `json:"pending"`
}

// Service handles session operations.
type Service struct {
	registry   *session.Registry
	store      queue.Store
	dispatcher scheduler.Dispatcher
	ledger     repository.LedgerRepository
	policy     scheduler.Policy
	metrics    Metrics
	logger     *slog.Logger
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	done    map[string]chan struct{}
	closing bool
}

// NewService creates a new engine service.
func NewService(
	registry *session.Registry,
	store queue.Store,
	dispatcher scheduler.Dispatcher,
	ledger repository.LedgerRepository,
	opts Options,
) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := opts.Metrics
	if m == nil {
		m = noopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		registry:   registry,
		store:      store,
		dispatcher: dispatcher,
		ledger:     ledger,
		policy:     opts.Policy,
		metrics:    m,
		logger:     logger,
		now:        now,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(map[string]chan struct{}),
	}
}

// StartSession creates a session and starts its scheduler.
func (s *Service) StartSession(ctx context.Context, label string) (*session.Session, error) {
	if label == "" {
		return nil, session.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return nil, ErrShuttingDown
	}

	sess := s.registry.Create(label)
	s.store.Open(sess.ID)

	done := make(chan struct{})
	s.done[sess.ID] = done

	sch := scheduler.New(sess.ID, s.policy, scheduler.Deps{
		Store:      s.store,
		Active:     s.registry,
		Dispatcher: s.dispatcher,
		Metrics:    s.metrics,
		Logger:     s.logger,
		Now:        s.now,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		runErr := sch.Run(s.ctx)
		s.finalize(sess.ID, runErr)
	}()

	s.metrics.SessionStarted()
	s.logger.Info("session started", "session_id", sess.ID, "seed_lot", label)
	return sess, nil
}

// StopSession removes the session from the active set. Its scheduler flushes
// remaining items in the background; StopSession does not wait for that.
func (s *Service) StopSession(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, session.ErrInvalidInput
	}
	sess, err := s.registry.Close(id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session stopped", "session_id", id)
	return sess, nil
}

// SubmitItem queues an item on an active session.
func (s *Service) SubmitItem(ctx context.Context, id, itemID string) error {
	if id == "" || itemID == "" {
		return session.ErrInvalidInput
	}
	if !s.registry.IsActive(id) {
		return session.ErrUnknownSession
	}
	if err := s.store.Enqueue(id, itemID, s.now()); err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			return err
		}
		return fmt.Errorf("enqueue item: %w", err)
	}
	s.metrics.ItemSubmitted()
	return nil
}

// GetSessionStats returns the live snapshot of a session, or its ledger
// entry once finalized.
func (s *Service) GetSessionStats(ctx context.Context, id string) (*Stats, error) {
	if id == "" {
		return nil, session.ErrInvalidInput
	}

	sess, err := s.registry.Get(id)
	if err == nil {
		return &Stats{Session: *sess, Pending: s.store.Len(id)}, nil
	}
	if !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}

	if s.ledger == nil {
		return nil, session.ErrNotFound
	}
	sess, err = s.ledger.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return &Stats{Session: *sess}, nil
}

// SampledItems returns the ids of persisted samples for a session.
func (s *Service) SampledItems(ctx context.Context, id string) ([]string, error) {
	stats, err := s.GetSessionStats(ctx, id)
	if err != nil {
		return nil, err
	}
	return stats.SampledItems, nil
}

// ListHistoricalSessions returns every finalized session.
func (s *Service) ListHistoricalSessions(ctx context.Context) ([]session.Summary, error) {
	if s.ledger == nil {
		return []session.Summary{}, nil
	}
	sessions, err := s.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// ActiveSessions returns the ids of sessions still accepting items.
func (s *Service) ActiveSessions() []string {
	return s.registry.Active()
}

// Wait blocks until the session's scheduler has finalized it or ctx is done.
// Sessions that are unknown or already finalized return immediately.
func (s *Service) Wait(ctx context.Context, id string) error {
	s.mu.Lock()
	done, ok := s.done[id]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops every scheduler and waits for the terminal flushes.
// Sessions still active are finalized as if stopped.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.cancel()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.logger.Info("all sessions drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sessions to drain: %w", ctx.Err())
	}
}

// finalize runs once the scheduler for id has exited. The ledger entry is
// written before the registry entry is dropped so stats never miss.
func (s *Service) finalize(id string, runErr error) {
	logger := s.logger.With("session_id", id)

	if runErr != nil {
		logger.Error("scheduler terminated", "error", runErr)
	}
	if s.registry.IsActive(id) {
		if _, err := s.registry.Close(id); err != nil {
			logger.Warn("closing session after scheduler exit", "error", err)
		}
	}

	snapshot, err := s.registry.Finalize(id)
	if err != nil {
		logger.Error("finalizing session", "error", err)
		s.forget(id)
		return
	}

	if s.ledger != nil {
		if err := s.ledger.Append(context.WithoutCancel(s.ctx), snapshot); err != nil {
			// The registry entry is kept so the final stats stay queryable.
			logger.Error("writing session to ledger", "error", err)
			s.forget(id)
			s.metrics.SessionEnded()
			return
		}
	}

	s.registry.Release(id)
	s.forget(id)
	s.metrics.SessionEnded()
	logger.Info("session finalized",
		"accepted", snapshot.Accepted,
		"rejected", snapshot.Rejected,
		"sampled", snapshot.Sampled,
	)
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	delete(s.done, id)
	s.mu.Unlock()
}

type noopMetrics struct{}

func (noopMetrics) BatchDispatched(string, int) {}
func (noopMetrics) ItemSubmitted()              {}
func (noopMetrics) SessionStarted()             {}
func (noopMetrics) SessionEnded()               {}
