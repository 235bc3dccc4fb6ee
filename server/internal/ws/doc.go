// Package ws implements the per-session WebSocket stream of monstersync-server.
//
// Each client subscribes to one session through the {session} route variable
// (mounted at /ws/sessions/{session}). The hub sends that session's state:
//   - immediately on connect (event "snapshot"),
//   - on every Notify from the receiver after an accepted push (event "update"),
//   - on every Run tick (event "snapshot").
//
// Message format:
//
//	{
//	  "event": "snapshot" | "update",
//	  "data":  { /* same schema as GET /api/v1/sessions/{session}/monsters */ }
//	}
//
// An unknown or stale session streams an empty monsters list. The upgrader
// accepts all origins; apply CORS restrictions at the reverse proxy level.
package ws
