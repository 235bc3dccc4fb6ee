// Package push relays changed monster snapshots to monstersync-server.
//
// Service.PushMonster (or Push) is called from the producer goroutine. It is
// a silent no-op while no session ID is set. Otherwise the update is compared
// with the last accepted value for its slot index; an identical value is
// dropped, anything else replaces the cached value and is appended to the
// pending queue. The cache and the queue share one mutex that is never held
// across a network call.
//
// Service.SetState(true) starts a single push worker; SetState(false) cancels
// it. Both transitions clear the cache and the queue. Calling SetState with
// the current state does nothing.
//
// Each worker iteration:
//
//  1. waits IdleInterval while the session ID is empty
//  2. drains the queue: last update per index, sorted by index
//  3. exits if its context was cancelled
//  4. waits IdleInterval when the batch is empty
//  5. sends the batch; on success waits ThrottleInterval
//  6. on failure counts a retry and waits BackoffInterval; after RetryCeiling
//     consecutive failures the worker exits for good
//
// A send in flight is never cancelled; cancellation is observed at the next
// drain. A failed batch is not resent: its monsters go out again once they
// change.
package push
