// Package pipeline labels dispatched batches and samples a fraction of the
// results to durable storage.
package pipeline

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/rpggio/seedsort/internal/queue"
	"golang.org/x/sync/errgroup"
)

// Recorder receives per-item results. Calls for sessions that no longer
// exist must be no-ops.
type Recorder interface {
	RecordOutcome(sessionID string, outcome session.Outcome)
	SampleRecorder
}

// Metrics is the instrumentation the pipeline reports to.
type Metrics interface {
	ItemClassified(outcome string)
	ClassifyFailed()
	SamplePersisted()
	SampleFailed()
}

type noopMetrics struct{}

func (noopMetrics) ItemClassified(string) {}
func (noopMetrics) ClassifyFailed()       {}
func (noopMetrics) SamplePersisted()      {}
func (noopMetrics) SampleFailed()         {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

// Config controls sampling and per-batch cost.
type Config struct {
	// SamplePercentage is the chance, 0 to 100, that a labeled item is sampled.
	SamplePercentage int
	// Workers bounds concurrent item processing within one batch.
	Workers int
	// BatchCost is a fixed delay after each batch, simulating inference time.
	BatchCost time.Duration
}

// Pipeline processes batches for all sessions.
type Pipeline struct {
	cfg        Config
	classifier Classifier
	recorder   Recorder
	sampler    *Sampler
	metrics    Metrics
	logger     *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a pipeline. A nil src seeds the sampling trials randomly.
func New(cfg Config, classifier Classifier, recorder Recorder, sink Sink, metrics Metrics, logger *slog.Logger, src rand.Source) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	cfg.SamplePercentage = min(max(cfg.SamplePercentage, 0), 100)
	metrics = metricsOrNoop(metrics)
	return &Pipeline{
		cfg:        cfg,
		classifier: classifier,
		recorder:   recorder,
		sampler:    NewSampler(sink, recorder, metrics, logger),
		metrics:    metrics,
		logger:     logger,
		rng:        rand.New(src),
	}
}

// Process labels every item in batch. Per-item failures are logged and never
// abort the rest of the batch.
func (p *Pipeline) Process(ctx context.Context, batch []queue.Item) {
	if len(batch) == 0 {
		return
	}

	if p.cfg.Workers == 1 {
		for _, item := range batch {
			p.processItem(ctx, item)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(p.cfg.Workers)
		for _, item := range batch {
			g.Go(func() error {
				p.processItem(ctx, item)
				return nil
			})
		}
		_ = g.Wait()
	}

	if p.cfg.BatchCost > 0 {
		time.Sleep(p.cfg.BatchCost)
	}
}

func (p *Pipeline) processItem(ctx context.Context, item queue.Item) {
	outcome, err := p.classifier.Classify(ctx, item.ID)
	if err == nil && !outcome.Valid() {
		err = errInvalidOutcome{outcome}
	}
	if err != nil {
		p.metrics.ClassifyFailed()
		p.logger.Warn("classification failed", "session_id", item.SessionID, "item_id", item.ID, "error", err)
		return
	}

	p.recorder.RecordOutcome(item.SessionID, outcome)
	p.metrics.ItemClassified(string(outcome))

	if p.sampleTrial() {
		p.sampler.Persist(ctx, item.SessionID, item.ID, outcome)
	}
}

// sampleTrial draws one uniform trial against the configured percentage.
func (p *Pipeline) sampleTrial() bool {
	switch p.cfg.SamplePercentage {
	case 0:
		return false
	case 100:
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(100) < p.cfg.SamplePercentage
}

type errInvalidOutcome struct {
	outcome session.Outcome
}

func (e errInvalidOutcome) Error() string {
	return "classifier returned unknown outcome " + string(e.outcome)
}
