package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry tracks live sessions and their counters. A session stays in the
// registry after Close until Release is called, so that batches still being
// flushed can record their outcomes.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewRegistry creates an empty registry. A nil clock uses time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		sessions: make(map[string]*Session),
		now:      now,
	}
}

// Create registers a new active session with zeroed counters.
func (r *Registry) Create(label string) *Session {
	sess := &Session{
		ID:           uuid.NewString(),
		Label:        label,
		Status:       StatusActive,
		SampledItems: []string{},
		StartTime:    r.now(),
	}

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	return sess.Clone()
}

// IsActive reports whether id is in the active set.
func (r *Registry) IsActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return ok && sess.Status == StatusActive
}

// Active returns the ids of all active sessions.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id, sess := range r.sessions {
		if sess.Status == StatusActive {
			ids = append(ids, id)
		}
	}
	return ids
}

// RecordOutcome increments the counter for outcome. Unknown sessions are ignored.
func (r *Registry) RecordOutcome(id string, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok || sess.Status == StatusClosed {
		return
	}
	switch outcome {
	case OutcomeAccepted:
		sess.Accepted++
	case OutcomeRejected:
		sess.Rejected++
	}
}

// RecordSample counts a persisted sample. Unknown sessions are ignored.
func (r *Registry) RecordSample(id, itemID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok || sess.Status == StatusClosed {
		return
	}
	sess.Sampled++
	sess.SampledItems = append(sess.SampledItems, itemID)
}

// Close removes the session from the active set and stamps its end time.
func (r *Registry) Close(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok || sess.Status != StatusActive {
		return nil, ErrUnknownSession
	}
	end := r.now()
	sess.EndTime = &end
	sess.Status = StatusDraining
	return sess.Clone(), nil
}

// Get returns a snapshot of a registered session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// Finalize marks a draining session closed and returns its final snapshot.
// Counters are frozen from this point on.
func (r *Registry) Finalize(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if sess.EndTime == nil {
		end := r.now()
		sess.EndTime = &end
	}
	sess.Status = StatusClosed
	return sess.Clone(), nil
}

// Release drops the session entry.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
