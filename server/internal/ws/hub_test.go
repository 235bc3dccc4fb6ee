package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monstersync/monstersync/pkg/types"
	"github.com/monstersync/monstersync/server/internal/store"
	wsHub "github.com/monstersync/monstersync/server/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func monster(index int) types.MonsterModel {
	return types.MonsterModel{
		ID:    "em002_00",
		Index: index,
		Parts: []types.MonsterPartModel{{ID: "head", Health: 400, MaxHealth: 500}},
	}
}

// startHub starts a test HTTP server routing /ws/sessions/{session} to the
// hub and runs the hub with a cancellable context.
// Returns the ws:// base URL, the hub, and the cancel function.
func startHub(t *testing.T, st *store.Store, interval time.Duration) (baseURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(st, interval)
	ctx, cancelFn := context.WithCancel(context.Background())

	r := mux.NewRouter()
	r.Handle("/ws/sessions/{session}", hub)
	srv := httptest.NewServer(r)
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/", hub, cancelFn
}

// dial connects a WebSocket client to url and returns the connection.
func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "dial %s", url)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads and decodes one message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err, "ReadMessage")
	var m wsHub.Message
	require.NoError(t, json.Unmarshal(raw, &m), "unmarshal %s", raw)
	return m
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateSnapshot(t *testing.T) {
	st := store.New(5*time.Minute, 8)
	st.Put("hunt", []types.MonsterModel{monster(0), monster(1)})
	url, _, _ := startHub(t, st, time.Hour)

	m := readMessage(t, dial(t, url+"hunt"))

	assert.Equal(t, wsHub.EventSnapshot, m.Event)
	assert.Equal(t, "hunt", m.Data.SessionID)
	assert.Len(t, m.Data.Monsters, 2)
	assert.NotEmpty(t, m.Data.GeneratedAt)
}

func TestHub_UnknownSession_EmptyMonsters(t *testing.T) {
	url, _, _ := startHub(t, store.New(5*time.Minute, 8), time.Hour)

	m := readMessage(t, dial(t, url+"nobody"))

	assert.Equal(t, "nobody", m.Data.SessionID)
	assert.NotNil(t, m.Data.Monsters)
	assert.Empty(t, m.Data.Monsters)
}

func TestHub_Notify_SendsUpdate(t *testing.T) {
	st := store.New(5*time.Minute, 8)
	url, hub, _ := startHub(t, st, time.Hour)

	conn := dial(t, url+"hunt")
	readMessage(t, conn) // consume immediate snapshot (empty session)

	st.Put("hunt", []types.MonsterModel{monster(3)})
	hub.Notify("hunt")

	m := readMessage(t, conn)
	assert.Equal(t, wsHub.EventUpdate, m.Event)
	require.Len(t, m.Data.Monsters, 1)
	assert.Equal(t, 3, m.Data.Monsters[0].Index)
}

func TestHub_Notify_OnlyTargetSession(t *testing.T) {
	st := store.New(5*time.Minute, 8)
	url, hub, _ := startHub(t, st, time.Hour)

	other := dial(t, url+"other")
	readMessage(t, other)

	st.Put("hunt", []types.MonsterModel{monster(0)})
	hub.Notify("hunt")

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "client of another session received a message")
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	st := store.New(5*time.Minute, 8)
	url, _, _ := startHub(t, st, testInterval)

	conn := dial(t, url+"hunt")
	readMessage(t, conn)

	st.Put("hunt", []types.MonsterModel{monster(1)})

	// Ticks keep arriving; wait for one that carries the new monster.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m := readMessage(t, conn)
		if m.Event == wsHub.EventSnapshot && len(m.Data.Monsters) == 1 {
			return
		}
	}
	t.Fatal("no tick broadcast carried the new monster")
}

func TestHub_CountClients(t *testing.T) {
	url, hub, _ := startHub(t, store.New(5*time.Minute, 8), time.Hour)

	for _, s := range []string{"a", "a", "b"} {
		readMessage(t, dial(t, url+s))
	}

	require.Eventually(t, func() bool { return hub.Count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, hub.CountSession("a"))
	assert.Equal(t, 1, hub.CountSession("b"))
	assert.Equal(t, 0, hub.CountSession("c"))
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	url, hub, _ := startHub(t, store.New(5*time.Minute, 8), time.Hour)

	conn := dial(t, url+"a")
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	url, hub, cancel := startHub(t, store.New(5*time.Minute, 8), time.Hour)

	conn := dial(t, url+"a")
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "connection should be closed after shutdown")
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(store.New(time.Minute, 8), testInterval)
	r := mux.NewRouter()
	r.Handle("/ws/sessions/{session}", hub)
	srv := httptest.NewServer(r)
	defer srv.Close()

	// Plain HTTP GET without WebSocket upgrade headers → 400
	resp, err := http.Get(srv.URL + "/ws/sessions/a")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHub_MissingSessionVar_Returns400(t *testing.T) {
	hub := wsHub.New(store.New(time.Minute, 8), testInterval)
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/stream", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
