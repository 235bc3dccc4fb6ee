package types

import "github.com/monstersync/monstersync/pkg/compact"

// PushRequest is the body of POST /api/v1/sessions/{session}/monsters.
type PushRequest struct {
	Monsters compact.List[MonsterModel] `json:"monsters"`
}

// PushResponse is the server's reply to a PushRequest.
type PushResponse struct {
	OK       bool   `json:"ok"`
	Accepted int    `json:"accepted"`
	Message  string `json:"message,omitempty"`
}
