package store

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/monstersync/monstersync/pkg/types"
)

// Session is a point-in-time copy of one session's state.
type Session struct {
	ID        string
	Monsters  []types.MonsterModel // sorted by Index
	Batches   int
	UpdatedAt time.Time
}

type entry struct {
	monsters  map[int]types.MonsterModel
	batches   int
	updatedAt time.Time
}

// Store is a thread-safe in-memory session store, keyed by session ID.
// Each session holds the latest MonsterModel per slot index. A background
// goroutine (Run) evicts sessions that have not been pushed to within TTL.
type Store struct {
	mu          sync.RWMutex
	data        map[string]*entry
	ttl         time.Duration
	maxMonsters int
	now         func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL and per-session slot limit.
func New(ttl time.Duration, maxMonsters int) *Store {
	return &Store{
		data:        make(map[string]*entry),
		ttl:         ttl,
		maxMonsters: maxMonsters,
		now:         time.Now,
	}
}

// Put merges a batch into the session, replacing monsters by index.
// Indexes outside [0, maxMonsters) are dropped. It returns the number of
// monsters stored.
func (s *Store) Put(sessionID string, monsters []types.MonsterModel) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[sessionID]
	if !ok {
		e = &entry{monsters: make(map[int]types.MonsterModel)}
		s.data[sessionID] = e
	}
	stored := 0
	for _, m := range monsters {
		if m.Index < 0 || m.Index >= s.maxMonsters {
			continue
		}
		e.monsters[m.Index] = m
		stored++
	}
	e.batches++
	e.updatedAt = s.now()
	return stored
}

// Get returns a copy of the session and a boolean indicating whether it was
// found. The session may be stale if TTL has elapsed.
func (s *Store) Get(sessionID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[sessionID]
	if !ok {
		return Session{}, false
	}
	return e.snapshot(sessionID), true
}

// Live is Get restricted to sessions pushed to within the TTL.
func (s *Store) Live(sessionID string) (Session, bool) {
	sess, ok := s.Get(sessionID)
	if !ok || !sess.UpdatedAt.After(s.now().Add(-s.ttl)) {
		return Session{}, false
	}
	return sess, true
}

// TTL returns the configured session time-to-live.
func (s *Store) TTL() time.Duration { return s.ttl }

// List returns copies of all sessions whose last push is within the TTL,
// sorted by ID. Stale sessions that have not yet been evicted are excluded.
func (s *Store) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]Session, 0, len(s.data))
	for id, e := range s.data {
		if e.updatedAt.After(cutoff) {
			out = append(out, e.snapshot(id))
		}
	}
	slices.SortFunc(out, func(a, b Session) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Count returns the total number of sessions currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes sessions whose last push is older than now minus TTL.
// It returns the number of sessions removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.updatedAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL interval
// (minimum 1 second) so sessions are evicted promptly. Run blocks until ctx is
// cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted idle sessions", "count", n)
			}
		}
	}
}

func (e *entry) snapshot(id string) Session {
	monsters := make([]types.MonsterModel, 0, len(e.monsters))
	idxs := make([]int, 0, len(e.monsters))
	for idx := range e.monsters {
		idxs = append(idxs, idx)
	}
	slices.Sort(idxs)
	for _, idx := range idxs {
		monsters = append(monsters, e.monsters[idx])
	}
	return Session{
		ID:        id,
		Monsters:  monsters,
		Batches:   e.batches,
		UpdatedAt: e.updatedAt,
	}
}
