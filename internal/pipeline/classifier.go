package pipeline

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/rpggio/seedsort/internal/domain/session"
)

// Classifier labels a single item.
type Classifier interface {
	Classify(ctx context.Context, itemID string) (session.Outcome, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, itemID string) (session.Outcome, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, itemID string) (session.Outcome, error) {
	return f(ctx, itemID)
}

// RandomClassifier accepts or rejects with equal probability.
type RandomClassifier struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomClassifier creates a classifier over src. A nil source is seeded randomly.
func NewRandomClassifier(src rand.Source) *RandomClassifier {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &RandomClassifier{rng: rand.New(src)}
}

// Classify returns accepted or rejected.
func (c *RandomClassifier) Classify(ctx context.Context, _ string) (session.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	accept := c.rng.IntN(2) == 0
	c.mu.Unlock()
	if accept {
		return session.OutcomeAccepted, nil
	}
	return session.OutcomeRejected, nil
}
