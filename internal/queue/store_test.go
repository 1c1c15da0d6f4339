package queue

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/stretchr/testify/require"
)

func itemIDs(items []Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestMemoryStore_EnqueueUnknownSession(t *testing.T) {
	store := NewMemoryStore()
	err := store.Enqueue("missing", "a", time.Now())
	require.ErrorIs(t, err, session.ErrUnknownSession)
}

func TestMemoryStore_SelectEligible_AgeAndOrder(t *testing.T) {
	store := NewMemoryStore()
	store.Open("s1")
	base := time.Now()

	require.NoError(t, store.Enqueue("s1", "old1", base))
	require.NoError(t, store.Enqueue("s1", "young1", base.Add(250*time.Millisecond)))
	require.NoError(t, store.Enqueue("s1", "old2", base.Add(50*time.Millisecond)))
	require.NoError(t, store.Enqueue("s1", "young2", base.Add(260*time.Millisecond)))

	now := base.Add(300 * time.Millisecond)
	batch, err := store.SelectEligible("s1", now, 200*time.Millisecond, 8)
	require.NoError(t, err)
	require.Equal(t, []string{"old1", "old2"}, itemIDs(batch))
	require.Equal(t, 2, store.Len("s1"))

	// Nothing else is old enough yet.
	batch, err = store.SelectEligible("s1", now, 200*time.Millisecond, 8)
	require.NoError(t, err)
	require.Empty(t, batch)

	batch, err = store.SelectEligible("s1", now.Add(time.Second), 200*time.Millisecond, 8)
	require.NoError(t, err)
	require.Equal(t, []string{"young1", "young2"}, itemIDs(batch))
	require.Equal(t, 0, store.Len("s1"))
}

func TestMemoryStore_SelectEligible_ExactThreshold(t *testing.T) {
	store := NewMemoryStore()
	store.Open("s1")
	base := time.Now()
	require.NoError(t, store.Enqueue("s1", "a", base))

	batch, err := store.SelectEligible("s1", base.Add(300*time.Millisecond), 300*time.Millisecond, 8)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, itemIDs(batch))
}

func TestMemoryStore_SelectEligible_Cap(t *testing.T) {
	store := NewMemoryStore()
	store.Open("s1")
	base := time.Now()
	for i := 0; i < 20; i++ {
		require.NoError(t, store.Enqueue("s1", fmt.Sprintf("i%02d", i), base))
	}

	now := base.Add(time.Second)
	first, err := store.SelectEligible("s1", now, 0, 8)
	require.NoError(t, err)
	require.Len(t, first, 8)
	require.Equal(t, "i00", first[0].ID)
	require.Equal(t, "i07", first[7].ID)

	second, err := store.SelectEligible("s1", now, 0, 8)
	require.NoError(t, err)
	require.Len(t, second, 8)
	require.Equal(t, "i08", second[0].ID)

	third, err := store.SelectEligible("s1", now, 0, 8)
	require.NoError(t, err)
	require.Len(t, third, 4)
	require.Equal(t, 0, store.Len("s1"))
}

func TestMemoryStore_DrainAllSealsQueue(t *testing.T) {
	store := NewMemoryStore()
	store.Open("s1")
	now := time.Now()
	require.NoError(t, store.Enqueue("s1", "a", now))
	require.NoError(t, store.Enqueue("s1", "b", now))

	items, err := store.DrainAll("s1")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, itemIDs(items))

	err = store.Enqueue("s1", "late", now)
	require.ErrorIs(t, err, session.ErrUnknownSession)

	items, err = store.DrainAll("s1")
	require.NoError(t, err)
	require.Empty(t, items)

	store.Release("s1")
	_, err = store.DrainAll("s1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = store.SelectEligible("s1", now, 0, 8)
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	store.Open("s1")
	store.Open("s2")
	now := time.Now()
	require.NoError(t, store.Enqueue("s1", "a", now))
	require.NoError(t, store.Enqueue("s2", "a", now))

	batch, err := store.SelectEligible("s1", now, 0, 8)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, "s1", batch[0].SessionID)
	require.Equal(t, 1, store.Len("s2"))
}

func TestMemoryStore_ConcurrentSelectNeverDuplicates(t *testing.T) {
	store := NewMemoryStore()
	store.Open("s1")
	now := time.Now()
	const total = 500
	for i := 0; i < total; i++ {
		require.NoError(t, store.Enqueue("s1", fmt.Sprintf("item-%d", i), now))
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(drain bool) {
			defer wg.Done()
			for {
				var (
					batch []Item
					err   error
				)
				if drain {
					batch, err = store.DrainAll("s1")
				} else {
					batch, err = store.SelectEligible("s1", now, 0, 7)
				}
				if err != nil || len(batch) == 0 {
					if store.Len("s1") == 0 {
						return
					}
					continue
				}
				mu.Lock()
				for _, item := range batch {
					seen[item.ID]++
				}
				mu.Unlock()
			}
		}(w == 7)
	}
	wg.Wait()

	require.Len(t, seen, total)
	for id, count := range seen {
		require.Equal(t, 1, count, "item %s dispatched more than once", id)
	}
}
