// Package api implements the read side of the monstersync-server HTTP API.
//
// New(store).Register(router) mounts on a gorilla/mux router:
//
//	GET /api/v1/health                      : status, live session and monster counts
//	GET /api/v1/sessions                    : all live sessions ([]SessionSummary)
//	GET /api/v1/sessions/{session}/monsters : one session; 404 if unknown or stale
//
// All endpoints respond with Content-Type: application/json. Register also
// installs JSON bodies for 404 and 405. The push endpoint on the same path is
// mounted by package receiver.
//
// BuildSession is shared with the WebSocket hub so REST and stream clients
// see the same payload.
package api
