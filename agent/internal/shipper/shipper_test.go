package shipper

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monstersync/monstersync/agent/internal/config"
	"github.com/monstersync/monstersync/pkg/types"
)

// mockServer records every push request it receives.
type mockServer struct {
	mu       sync.Mutex
	paths    []string
	headers  []http.Header
	bodies   [][]byte
	requests []types.PushRequest
	status   int
	resp     types.PushResponse
}

func (m *mockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer zr.Close()
		body = zr
	}
	raw, _ := io.ReadAll(body)

	var req types.PushRequest
	_ = json.Unmarshal(raw, &req)

	m.mu.Lock()
	m.paths = append(m.paths, r.URL.EscapedPath())
	m.headers = append(m.headers, r.Header.Clone())
	m.bodies = append(m.bodies, raw)
	m.requests = append(m.requests, req)
	status, resp := m.status, m.resp
	m.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
		resp = types.PushResponse{OK: true, Accepted: len(req.Monsters)}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

type received struct {
	path   string
	header http.Header
	body   []byte
	req    types.PushRequest
}

// only returns the single request received, failing if there is not exactly one.
func (m *mockServer) only(t *testing.T) received {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.requests, 1)
	return received{path: m.paths[0], header: m.headers[0], body: m.bodies[0], req: m.requests[0]}
}

func startTestServer(t *testing.T, m *mockServer) string {
	t.Helper()
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)
	return srv.URL
}

func agentCfg(endpoint string) config.AgentConfig {
	return config.AgentConfig{
		ServerEndpoint: endpoint + "/",
		Push:           config.PushConfig{SendTimeout: 2 * time.Second},
	}
}

func batch() []types.MonsterModel {
	return []types.MonsterModel{
		{ID: "em001_00", Index: 0, Parts: []types.MonsterPartModel{{ID: "head", Health: 10, MaxHealth: 20}}},
		{ID: "em002_00", Index: 1, Ailments: []types.AilmentModel{{ID: "poison", Buildup: 5}}},
	}
}

func TestShipper_DeliversBatch(t *testing.T) {
	m := &mockServer{}
	s, err := New(agentCfg(startTestServer(t, m)))
	require.NoError(t, err)

	require.NoError(t, s.PushChangedMonsters(context.Background(), "room 7", batch()))

	r := m.only(t)
	assert.Equal(t, "/api/v1/sessions/room%207/monsters", r.path)
	assert.Equal(t, "application/json", r.header.Get("Content-Type"))

	got := r.req.Monsters
	require.Len(t, got, 2)
	assert.True(t, batch()[0].Equal(got[0]))
	assert.True(t, batch()[1].Equal(got[1]))
}

func TestShipper_BodyIsCompacted(t *testing.T) {
	m := &mockServer{}
	s, err := New(agentCfg(startTestServer(t, m)))
	require.NoError(t, err)

	require.NoError(t, s.PushChangedMonsters(context.Background(), "s", batch()))

	var wire struct {
		Monsters []json.RawMessage `json:"monsters"`
	}
	require.NoError(t, json.Unmarshal(m.only(t).body, &wire))
	require.NotEmpty(t, wire.Monsters)
	assert.Equal(t, `"$__"`, string(wire.Monsters[0]))
}

func TestShipper_Gzip(t *testing.T) {
	m := &mockServer{}
	cfg := agentCfg(startTestServer(t, m))
	cfg.Push.Compress = true
	s, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, s.PushChangedMonsters(context.Background(), "s", batch()))

	r := m.only(t)
	assert.Equal(t, "gzip", r.header.Get("Content-Encoding"))
	require.Len(t, r.req.Monsters, 2)
}

func TestShipper_APIKeyHeader(t *testing.T) {
	t.Setenv("MONSTERSYNC_TEST_KEY", "hunter2")
	m := &mockServer{}
	cfg := agentCfg(startTestServer(t, m))
	cfg.ServerAuth = config.AuthConfig{Mode: "apikey", Header: "X-Api-Key", KeyEnv: "MONSTERSYNC_TEST_KEY"}
	s, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, s.PushChangedMonsters(context.Background(), "s", batch()))
	assert.Equal(t, "hunter2", m.only(t).header.Get("X-Api-Key"))
}

func TestShipper_ClientErrorIsRejected(t *testing.T) {
	m := &mockServer{status: http.StatusBadRequest, resp: types.PushResponse{Message: "bad batch"}}
	s, err := New(agentCfg(startTestServer(t, m)))
	require.NoError(t, err)

	err = s.PushChangedMonsters(context.Background(), "s", batch())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Contains(t, err.Error(), "bad batch")
}

func TestShipper_NotOKIsRejected(t *testing.T) {
	m := &mockServer{status: http.StatusOK, resp: types.PushResponse{OK: false, Message: "session full"}}
	s, err := New(agentCfg(startTestServer(t, m)))
	require.NoError(t, err)

	err = s.PushChangedMonsters(context.Background(), "s", batch())
	assert.ErrorIs(t, err, ErrRejected)
}

func TestShipper_ServerErrorIsNotRejected(t *testing.T) {
	m := &mockServer{status: http.StatusServiceUnavailable}
	s, err := New(agentCfg(startTestServer(t, m)))
	require.NoError(t, err)

	err = s.PushChangedMonsters(context.Background(), "s", batch())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRejected))
}

func TestShipper_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := New(agentCfg(url))
	require.NoError(t, err)
	assert.Error(t, s.PushChangedMonsters(context.Background(), "s", batch()))
}

func TestNew_MTLSMissingCert(t *testing.T) {
	cfg := agentCfg("https://localhost:8443")
	cfg.ServerAuth = config.AuthConfig{Mode: "mtls", CertFile: "/nonexistent.crt", KeyFile: "/nonexistent.key"}
	_, err := New(cfg)
	assert.Error(t, err)
}
