package push

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/monstersync/monstersync/agent/internal/game"
	"github.com/monstersync/monstersync/pkg/types"
)

// LevelTrace is below slog.LevelDebug and is used for per-batch events.
const LevelTrace = slog.Level(-8)

// Default timings and limits.
const (
	DefaultIdleInterval     = 50 * time.Millisecond
	DefaultThrottleInterval = 300 * time.Millisecond
	DefaultBackoffInterval  = 10 * time.Second
	DefaultRetryCeiling     = 10
)

// Transport sends one ordered batch of monster updates for a session.
type Transport interface {
	PushChangedMonsters(ctx context.Context, sessionID string, monsters []types.MonsterModel) error
}

// Options controls push loop timing.
type Options struct {
	// IdleInterval is the wait while there is no session or nothing to send.
	IdleInterval time.Duration

	// ThrottleInterval is the wait after every successful send. It bounds the
	// outbound batch rate regardless of how fast updates arrive.
	ThrottleInterval time.Duration

	// BackoffInterval is the wait after a failed send.
	BackoffInterval time.Duration

	// RetryCeiling is the number of consecutive failed sends after which the
	// worker stops for good.
	RetryCeiling int

	// SendTimeout bounds a single send. Zero leaves it to the transport.
	SendTimeout time.Duration
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		IdleInterval:     DefaultIdleInterval,
		ThrottleInterval: DefaultThrottleInterval,
		BackoffInterval:  DefaultBackoffInterval,
		RetryCeiling:     DefaultRetryCeiling,
	}
}

// Service owns the snapshot cache, the pending queue and the push worker.
// All methods are safe for concurrent use.
type Service struct {
	transport Transport
	opts      Options
	queue     *queue
	session   atomic.Pointer[string]
	stats     counters

	// ctrl serializes SetState; cur is the current worker or nil.
	ctrl sync.Mutex
	cur  *worker
}

// worker is one running push loop bound to its own cancellation.
type worker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (w *worker) alive() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// New creates a stopped Service that sends through t. Zero timings and a
// zero RetryCeiling take their Default values.
func New(t Transport, opts Options) *Service {
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultIdleInterval
	}
	if opts.ThrottleInterval <= 0 {
		opts.ThrottleInterval = DefaultThrottleInterval
	}
	if opts.BackoffInterval <= 0 {
		opts.BackoffInterval = DefaultBackoffInterval
	}
	if opts.RetryCeiling <= 0 {
		opts.RetryCeiling = DefaultRetryCeiling
	}
	return &Service{
		transport: t,
		opts:      opts,
		queue:     newQueue(),
	}
}

// SetSessionID sets the session pushes are sent to. An empty id pauses
// pushing and makes intake a no-op.
func (s *Service) SetSessionID(id string) {
	s.session.Store(&id)
}

// SessionID returns the current session ID, or "" if none is set.
func (s *Service) SessionID() string {
	if p := s.session.Load(); p != nil {
		return *p
	}
	return ""
}

// Running reports whether a push worker is alive. A worker that gave up after
// RetryCeiling failures is not running.
func (s *Service) Running() bool {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()
	return s.running()
}

func (s *Service) running() bool {
	return s.cur != nil && s.cur.alive()
}

// SetState starts or stops the push worker. Requesting the current state is
// a no-op. Every transition clears the cache and the pending queue. Stopping
// detaches the worker at once without waiting for it to exit, so a start right
// after a stop always gets a fresh worker.
func (s *Service) SetState(running bool) {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	if s.running() == running {
		return
	}

	if !running {
		s.cur.cancel()
		s.cur = nil
		s.queue.reset()
		slog.Info("push: stopping")
		return
	}

	// A worker that gave up is still referenced until the next start.
	if s.cur != nil {
		s.cur.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{cancel: cancel, done: make(chan struct{})}
	s.queue.reset()
	s.stats.retries.Store(0)
	s.cur = w

	go func() {
		defer close(w.done)
		s.loop(ctx)
	}()
	slog.Info("push: started")
}

// PushMonster maps an observed monster in slot index and queues it.
// It is a no-op while no session ID is set.
func (s *Service) PushMonster(m *game.Monster, index int) {
	if s.SessionID() == "" {
		return
	}
	s.Push(MapMonster(m, index))
}

// Push queues m unless it equals the last accepted value for m.Index.
// It is a no-op while no session ID is set. Callers must not modify m's
// slices after calling Push.
func (s *Service) Push(m types.MonsterModel) {
	if s.SessionID() == "" {
		return
	}
	if s.queue.offer(m) {
		s.stats.accepted.Add(1)
	} else {
		s.stats.deduplicated.Add(1)
	}
}
