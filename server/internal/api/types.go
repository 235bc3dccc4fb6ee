package api

import "github.com/monstersync/monstersync/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"`
	SessionCount int    `json:"session_count"`
	MonsterCount int    `json:"monster_count"`
	GeneratedAt  string `json:"generated_at"` // RFC3339
}

// SessionSummary is one entry in GET /api/v1/sessions.
type SessionSummary struct {
	ID           string `json:"id"`
	MonsterCount int    `json:"monster_count"`
	Batches      int    `json:"batches"`
	LastPush     string `json:"last_push"` // RFC3339
}

// SessionResponse is the payload for GET /api/v1/sessions/{session}/monsters
// and the data of every WebSocket session message. Monsters use the same
// wire form the agent pushes.
type SessionResponse struct {
	SessionID   string               `json:"session_id"`
	Monsters    []types.MonsterModel `json:"monsters"`
	LastPush    string               `json:"last_push,omitempty"` // RFC3339
	GeneratedAt string               `json:"generated_at"`        // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
