package push

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time view of the push pipeline.
type Stats struct {
	Running bool

	// Cached is the number of slots in the snapshot cache; Pending is the
	// number of queued updates not yet drained.
	Cached  int
	Pending int

	Accepted     uint64 // updates queued
	Deduplicated uint64 // updates dropped as equal to the cached value
	Batches      uint64 // successful sends
	Monsters     uint64 // monsters in successful sends
	Failures     uint64 // failed sends

	// Retries is the current run of consecutive failures.
	Retries int

	// Cancelled and Exhausted count worker exits by cause.
	Cancelled uint64
	Exhausted uint64

	LastPush time.Time
}

type counters struct {
	accepted     atomic.Uint64
	deduplicated atomic.Uint64
	batches      atomic.Uint64
	monsters     atomic.Uint64
	failures     atomic.Uint64
	retries      atomic.Int64
	cancelled    atomic.Uint64
	exhausted    atomic.Uint64
	lastPush     atomic.Int64 // unix nanos
}

// Stats returns the current counters.
func (s *Service) Stats() Stats {
	cached, pending := s.queue.size()
	st := Stats{
		Running:      s.Running(),
		Cached:       cached,
		Pending:      pending,
		Accepted:     s.stats.accepted.Load(),
		Deduplicated: s.stats.deduplicated.Load(),
		Batches:      s.stats.batches.Load(),
		Monsters:     s.stats.monsters.Load(),
		Failures:     s.stats.failures.Load(),
		Retries:      int(s.stats.retries.Load()),
		Cancelled:    s.stats.cancelled.Load(),
		Exhausted:    s.stats.exhausted.Load(),
	}
	if ns := s.stats.lastPush.Load(); ns != 0 {
		st.LastPush = time.Unix(0, ns)
	}
	return st
}
