package push

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/monstersync/monstersync/pkg/types"
)

// queue is the snapshot cache plus the pending updates, guarded by one mutex.
type queue struct {
	mu      sync.Mutex
	cache   map[int]types.MonsterModel
	pending []types.MonsterModel
}

func newQueue() *queue {
	return &queue{cache: make(map[int]types.MonsterModel)}
}

// offer appends m unless it equals the cached value for m.Index.
// It reports whether m was accepted.
func (q *queue) offer(m types.MonsterModel) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if prev, ok := q.cache[m.Index]; ok && prev.Equal(m) {
		return false
	}
	q.cache[m.Index] = m
	q.pending = append(q.pending, m)
	return true
}

// drain empties the pending queue and returns the newest update per index in
// ascending index order. If ctx is already cancelled the queue is left
// untouched and ctx.Err() is returned, so a stale worker never takes updates
// that belong to its successor.
func (q *queue) drain(ctx context.Context) ([]types.MonsterModel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(q.pending) == 0 {
		return nil, nil
	}

	latest := make(map[int]types.MonsterModel, len(q.pending))
	for _, m := range q.pending {
		latest[m.Index] = m
	}
	batch := make([]types.MonsterModel, 0, len(latest))
	for _, m := range latest {
		batch = append(batch, m)
	}
	slices.SortFunc(batch, func(a, b types.MonsterModel) int {
		return cmp.Compare(a.Index, b.Index)
	})

	q.pending = q.pending[:0]
	return batch, nil
}

// reset clears both the cache and the pending queue.
func (q *queue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.cache)
	q.pending = nil
}

// size returns the number of cached slots and pending updates.
func (q *queue) size() (cached, pending int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cache), len(q.pending)
}
