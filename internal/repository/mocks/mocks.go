package mocks

import (
	"context"

	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/stretchr/testify/mock"
)

// LedgerRepository is a mock for repository.LedgerRepository.
type LedgerRepository struct {
	mock.Mock
}

func (m *LedgerRepository) Append(ctx context.Context, sess *session.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *LedgerRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LedgerRepository) List(ctx context.Context) ([]session.Summary, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]session.Summary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Classifier is a mock for pipeline.Classifier.
type Classifier struct {
	mock.Mock
}

func (m *Classifier) Classify(ctx context.Context, itemID string) (session.Outcome, error) {
	args := m.Called(ctx, itemID)
	if outcome, ok := args.Get(0).(session.Outcome); ok {
		return outcome, args.Error(1)
	}
	return "", args.Error(1)
}

// Sink is a mock for pipeline.Sink.
type Sink struct {
	mock.Mock
}

func (m *Sink) Write(ctx context.Context, key string, payload []byte) error {
	args := m.Called(ctx, key, payload)
	return args.Error(0)
}
