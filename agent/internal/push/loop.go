package push

import (
	"context"
	"log/slog"
	"time"

	"github.com/monstersync/monstersync/pkg/types"
)

// loop is the push worker. It returns when ctx is cancelled or after
// RetryCeiling consecutive failed sends.
func (s *Service) loop(ctx context.Context) {
	retries := 0
	var lastPush time.Time

	for {
		session := s.SessionID()
		if session == "" {
			if !sleep(ctx, s.opts.IdleInterval) {
				s.stopped()
				return
			}
			continue
		}

		batch, err := s.queue.drain(ctx)
		if err != nil {
			s.stopped()
			return
		}

		if len(batch) == 0 {
			sleep(ctx, s.opts.IdleInterval)
			continue
		}

		if err := s.send(ctx, session, batch); err != nil {
			retries++
			s.stats.failures.Add(1)
			s.stats.retries.Store(int64(retries))

			// The last failure stops without a trailing backoff.
			if retries >= s.opts.RetryCeiling {
				slog.Warn("push: send failed",
					"attempt", retries, "ceiling", s.opts.RetryCeiling, "err", err)
				slog.Info("push: pushing stopped, no monster data for other members")
				s.stats.exhausted.Add(1)
				return
			}

			slog.Warn("push: send failed, will retry when new data is available",
				"attempt", retries,
				"ceiling", s.opts.RetryCeiling,
				"retry_in", s.opts.BackoffInterval,
				"err", err)
			sleep(ctx, s.opts.BackoffInterval)
			continue
		}

		now := time.Now()
		var sinceLast time.Duration
		if !lastPush.IsZero() {
			sinceLast = now.Sub(lastPush)
		}
		lastPush = now
		s.stats.batches.Add(1)
		s.stats.monsters.Add(uint64(len(batch)))
		s.stats.lastPush.Store(now.UnixNano())
		slog.Log(ctx, LevelTrace, "push: batch sent",
			"monsters", len(batch), "since_last_ms", sinceLast.Milliseconds())

		if retries != 0 {
			retries = 0
			s.stats.retries.Store(0)
			slog.Info("push: connection restored")
		}

		sleep(ctx, s.opts.ThrottleInterval)
	}
}

// send transmits batch. The worker context's cancellation is detached so a
// send in flight always runs to completion.
func (s *Service) send(ctx context.Context, session string, batch []types.MonsterModel) error {
	sendCtx := context.WithoutCancel(ctx)
	if s.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, s.opts.SendTimeout)
		defer cancel()
	}
	return s.transport.PushChangedMonsters(sendCtx, session, batch)
}

func (s *Service) stopped() {
	s.stats.cancelled.Add(1)
	slog.Debug("push: loop stopped")
}

// sleep waits for d or until ctx is cancelled. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
