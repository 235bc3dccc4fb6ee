package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/monstersync/monstersync/server/internal/api"
	"github.com/monstersync/monstersync/server/internal/store"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

// Event names carried in Message.Event.
const (
	EventSnapshot = "snapshot" // on connect and on every tick
	EventUpdate   = "update"   // after an accepted push
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins. Callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string              `json:"event"`
	Data  api.SessionResponse `json:"data"`
}

// Hub manages WebSocket clients subscribed to one session each and streams
// that session's state to them.
type Hub struct {
	store    *store.Store
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	id      string
	session string
	conn    *websocket.Conn
	send    chan []byte
}

// New creates a Hub that reads from st and re-broadcasts every interval.
func New(st *store.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
}

// Run starts the broadcast ticker loop. It sends each client its session's
// current state every interval. Run blocks until ctx is cancelled, then
// closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			for _, session := range h.sessions() {
				h.broadcast(session, EventSnapshot)
			}
		}
	}
}

// Notify pushes the current state of sessionID to its subscribers right away.
// The receiver calls it after every accepted batch.
func (h *Hub) Notify(sessionID string) {
	h.broadcast(sessionID, EventUpdate)
}

// ServeHTTP upgrades the HTTP connection to WebSocket and subscribes the
// client to the {session} route variable. It sends the current state
// immediately on connect. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session := mux.Vars(r)["session"]
	if session == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		id:      uuid.NewString(),
		session: session,
		conn:    conn,
		send:    make(chan []byte, sendBufSize),
	}
	// Queue the current state before registering; send is buffered and not
	// yet visible to closeAll.
	if data, err := h.buildMessage(session, EventSnapshot); err == nil {
		c.send <- data
	}
	h.register(c)
	defer h.unregister(c)

	slog.Debug("ws: client connected", "client", c.id, "session", session, "remote", r.RemoteAddr)

	go c.writePump()
	c.readPump() // blocks until connection closes

	slog.Debug("ws: client disconnected", "client", c.id, "session", session)
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CountSession returns the number of clients subscribed to sessionID.
func (h *Hub) CountSession(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.session == sessionID {
			n++
		}
	}
	return n
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// sessions returns the distinct sessions with at least one subscriber.
func (h *Hub) sessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for c := range h.clients {
		if _, ok := seen[c.session]; !ok {
			seen[c.session] = struct{}{}
			out = append(out, c.session)
		}
	}
	return out
}

func (h *Hub) broadcast(session, event string) {
	if h.CountSession(session) == 0 {
		return
	}
	data, err := h.buildMessage(session, event)
	if err != nil {
		slog.Error("ws: encode message", "session", session, "err", err)
		return
	}

	// Sends happen under the read lock so unregister cannot close a channel
	// mid-send.
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		if c.session != session {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// Clients with a full outgoing buffer are disconnected.
	for _, c := range slow {
		slog.Warn("ws: dropping slow client", "client", c.id, "session", session)
		h.unregister(c)
	}
}

func (h *Hub) buildMessage(session, event string) ([]byte, error) {
	sess, ok := h.store.Live(session)
	if !ok {
		sess = store.Session{ID: session}
	}
	return json.Marshal(Message{Event: event, Data: api.BuildSession(sess)})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
