package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/monstersync/monstersync/pkg/types"
	"github.com/monstersync/monstersync/server/internal/store"
)

// Handler serves the read-only /api/v1/* endpoints from the session store.
type Handler struct {
	store *store.Store
}

// New creates a Handler wired to the given session store.
func New(st *store.Store) *Handler {
	return &Handler{store: st}
}

// Register mounts the read routes on r and installs JSON 404/405 responses.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/sessions", h.listSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/sessions/{session}/monsters", h.getSession).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health with live session and monster counts.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	sessions := h.store.List()
	resp := HealthResponse{
		Status:       "ok",
		SessionCount: len(sessions),
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, s := range sessions {
		resp.MonsterCount += len(s.Monsters)
	}
	jsonResp(w, http.StatusOK, resp)
}

// listSessions returns GET /api/v1/sessions, all live sessions.
func (h *Handler) listSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := h.store.List()
	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionSummary{
			ID:           s.ID,
			MonsterCount: len(s.Monsters),
			Batches:      s.Batches,
			LastPush:     s.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	jsonResp(w, http.StatusOK, out)
}

// getSession returns GET /api/v1/sessions/{session}/monsters; 404 if the
// session is unknown or stale.
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.store.Live(mux.Vars(r)["session"])
	if !ok {
		jsonErr(w, http.StatusNotFound, "session not found")
		return
	}
	jsonResp(w, http.StatusOK, BuildSession(sess))
}

// BuildSession maps a store.Session to its JSON representation.
func BuildSession(s store.Session) SessionResponse {
	monsters := s.Monsters
	if monsters == nil {
		monsters = []types.MonsterModel{}
	}
	resp := SessionResponse{
		SessionID:   s.ID,
		Monsters:    monsters,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if !s.UpdatedAt.IsZero() {
		resp.LastPush = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
