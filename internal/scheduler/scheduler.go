// Package scheduler runs the per-session batching loop.
//
// A scheduler polls its session's queue on a fixed interval and dispatches
// every item that has waited at least the latency threshold, capped at the
// maximum batch size. Once the session leaves the active set the scheduler
// flushes whatever is left, regardless of age, releases the queue, and exits.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/seedsort/internal/metrics"
	"github.com/rpggio/seedsort/internal/queue"
)

// Policy holds the dual-trigger batch formation settings.
type Policy struct {
	PollInterval   time.Duration
	MaxItemLatency time.Duration
	MaxBatchSize   int
}

// DefaultPolicy returns the stock batching thresholds.
func DefaultPolicy() Policy {
	return Policy{
		PollInterval:   100 * time.Millisecond,
		MaxItemLatency: 300 * time.Millisecond,
		MaxBatchSize:   8,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.PollInterval <= 0 {
		p.PollInterval = def.PollInterval
	}
	if p.MaxItemLatency < 0 {
		p.MaxItemLatency = 0
	}
	if p.MaxBatchSize <= 0 {
		p.MaxBatchSize = def.MaxBatchSize
	}
	return p
}

// Dispatcher processes one batch synchronously.
type Dispatcher interface {
	Process(ctx context.Context, batch []queue.Item)
}

// ActiveChecker reports active-set membership.
type ActiveChecker interface {
	IsActive(sessionID string) bool
}

// BatchMetrics records dispatched batches.
type BatchMetrics interface {
	BatchDispatched(trigger string, n int)
}

// Scheduler drives batching for a single session.
type Scheduler struct {
	sessionID  string
	policy     Policy
	store      queue.Store
	active     ActiveChecker
	dispatcher Dispatcher
	metrics    BatchMetrics
	logger     *slog.Logger
	now        func() time.Time
}

// Deps bundles the collaborators a scheduler uses.
type Deps struct {
	Store      queue.Store
	Active     ActiveChecker
	Dispatcher Dispatcher
	Metrics    BatchMetrics
	Logger     *slog.Logger
	Now        func() time.Time
}

// New creates a scheduler for sessionID.
func New(sessionID string, policy Policy, deps Deps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	var m BatchMetrics = (*metrics.Metrics)(nil)
	if deps.Metrics != nil {
		m = deps.Metrics
	}
	return &Scheduler{
		sessionID:  sessionID,
		policy:     policy.withDefaults(),
		store:      deps.Store,
		active:     deps.Active,
		dispatcher: deps.Dispatcher,
		metrics:    m,
		logger:     logger.With("session_id", sessionID),
		now:        now,
	}
}

// Run polls until the session leaves the active set or ctx is done, then
// performs the terminal flush. A store failure ends the loop immediately and
// is returned; the queue is released in every case.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("batch processor started")
	defer s.logger.Info("batch processor finished")
	defer s.store.Release(s.sessionID)

	ticker := time.NewTicker(s.policy.PollInterval)
	defer ticker.Stop()

	for {
		if !s.active.IsActive(s.sessionID) {
			return s.flush(ctx)
		}

		batch, err := s.store.SelectEligible(s.sessionID, s.now(), s.policy.MaxItemLatency, s.policy.MaxBatchSize)
		if err != nil {
			s.logger.Error("queue scan failed, stopping scheduler", "error", err)
			return fmt.Errorf("select eligible items: %w", err)
		}
		if len(batch) > 0 {
			s.dispatch(ctx, metrics.TriggerLatency, batch)
		}

		select {
		case <-ctx.Done():
			return s.flush(ctx)
		case <-ticker.C:
		}
	}
}

// flush dispatches every remaining item as one final batch.
func (s *Scheduler) flush(ctx context.Context) error {
	remaining, err := s.store.DrainAll(s.sessionID)
	if err != nil {
		s.logger.Error("terminal drain failed", "error", err)
		return fmt.Errorf("drain remaining items: %w", err)
	}
	if len(remaining) > 0 {
		s.logger.Info("flushing remaining items", "batch_size", len(remaining))
		s.dispatch(ctx, metrics.TriggerFlush, remaining)
	}
	return nil
}

// dispatch runs a batch to completion. Items have already left the queue, so
// cancellation is only observed between ticks, never inside a batch.
func (s *Scheduler) dispatch(ctx context.Context, trigger string, batch []queue.Item) {
	s.metrics.BatchDispatched(trigger, len(batch))
	s.logger.Debug("dispatching batch", "trigger", trigger, "batch_size", len(batch))
	s.dispatcher.Process(context.WithoutCancel(ctx), batch)
}
