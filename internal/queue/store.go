// Package queue holds the per-session pending items waiting to be batched.
package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/rpggio/seedsort/internal/domain/session"
)

// ErrStoreUnavailable indicates the store can no longer serve a session's queue.
var ErrStoreUnavailable = errors.New("queue store unavailable")

// Item is one pending unit of work.
type Item struct {
	ID         string    `json:"item_id"`
	SessionID  string    `json:"session_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Store is the contract the scheduler and engine rely on.
type Store interface {
	Open(sessionID string)
	Enqueue(sessionID, itemID string, ts time.Time) error
	SelectEligible(sessionID string, now time.Time, maxAge time.Duration, maxCount int) ([]Item, error)
	DrainAll(sessionID string) ([]Item, error)
	Release(sessionID string)
	Len(sessionID string) int
}

type pending struct {
	items  []Item
	sealed bool
}

// MemoryStore is an in-process Store guarded by a single mutex. Every
// operation is a short scan-and-remove; no I/O happens under the lock.
type MemoryStore struct {
	mu     sync.Mutex
	queues map[string]*pending
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{queues: make(map[string]*pending)}
}

// Open creates an empty queue for sessionID. Reopening an existing queue is a no-op.
func (s *MemoryStore) Open(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[sessionID]; !ok {
		s.queues[sessionID] = &pending{}
	}
}

// Enqueue appends an item to the session's queue.
func (s *MemoryStore) Enqueue(sessionID, itemID string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[sessionID]
	if !ok || q.sealed {
		return session.ErrUnknownSession
	}
	q.items = append(q.items, Item{ID: itemID, SessionID: sessionID, EnqueuedAt: ts})
	return nil
}

// SelectEligible removes and returns, in enqueue order, up to maxCount items
// that have waited at least maxAge. Skipped items keep their relative order.
func (s *MemoryStore) SelectEligible(sessionID string, now time.Time, maxAge time.Duration, maxCount int) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[sessionID]
	if !ok {
		return nil, ErrStoreUnavailable
	}
	if maxCount <= 0 || len(q.items) == 0 {
		return nil, nil
	}

	var batch []Item
	kept := q.items[:0]
	for _, item := range q.items {
		if len(batch) < maxCount && now.Sub(item.EnqueuedAt) >= maxAge {
			batch = append(batch, item)
			continue
		}
		kept = append(kept, item)
	}
	// Clear the tail so removed items are not retained by the backing array.
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = Item{}
	}
	q.items = kept
	return batch, nil
}

// DrainAll removes every remaining item and seals the queue against further
// enqueues.
func (s *MemoryStore) DrainAll(sessionID string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[sessionID]
	if !ok {
		return nil, ErrStoreUnavailable
	}
	items := q.items
	q.items = nil
	q.sealed = true
	return items, nil
}

// Release discards the session's queue.
func (s *MemoryStore) Release(sessionID string) {
	s.mu.Lock()
	delete(s.queues, sessionID)
	s.mu.Unlock()
}

// Len returns the number of pending items for the session.
func (s *MemoryStore) Len(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[sessionID]; ok {
		return len(q.items)
	}
	return 0
}
