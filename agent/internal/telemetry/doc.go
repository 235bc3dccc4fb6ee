// Package telemetry exposes push pipeline counters in the Prometheus text
// exposition format.
//
// Handler(src) serves GET /metrics. Every scrape reads src.Stats() and encodes:
//
//	monstersync_push_running             gauge   1 while a worker is alive
//	monstersync_push_cached_slots        gauge
//	monstersync_push_pending_updates     gauge
//	monstersync_push_retries             gauge   current consecutive failures
//	monstersync_push_accepted_total      counter
//	monstersync_push_deduplicated_total  counter
//	monstersync_push_batches_total       counter
//	monstersync_push_monsters_total      counter
//	monstersync_push_failures_total      counter
//	monstersync_push_worker_exits_total  counter {reason="cancelled|exhausted"}
//	monstersync_push_last_success_seconds gauge  unix time, 0 before the first send
package telemetry
