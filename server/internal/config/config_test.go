package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Agent-only file; server section absent.
	p := writeConfig(t, `agent:
  server_endpoint: "http://localhost:8080"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", s.HTTPPort, DefaultHTTPPort)
	}
	if s.Session.TTL != DefaultSessionTTL {
		t.Errorf("session.ttl: got %v, want %v", s.Session.TTL, DefaultSessionTTL)
	}
	if s.Session.MaxMonsters != DefaultMaxMonsters {
		t.Errorf("session.max_monsters: got %d, want %d", s.Session.MaxMonsters, DefaultMaxMonsters)
	}
	if s.Stream.Interval != DefaultStreamInterval {
		t.Errorf("stream.interval: got %v, want %v", s.Stream.Interval, DefaultStreamInterval)
	}
	if !s.Validation.Enabled {
		t.Error("validation.enabled: got false, want true")
	}
	if s.Kafka.Enabled() {
		t.Error("kafka: enabled without brokers")
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  auth:
    mode: apikey
    key_env: MY_KEY
    header: x-sync-key
  session:
    ttl: 10m
    max_monsters: 3
  stream:
    interval: 500ms
  validation:
    enabled: false
  kafka:
    brokers: ["localhost:9092"]
    topic: hunts
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", s.HTTPPort)
	}
	if s.Auth.Mode != "apikey" {
		t.Errorf("auth.mode: got %q, want apikey", s.Auth.Mode)
	}
	if s.Auth.EffectiveHeader() != "x-sync-key" {
		t.Errorf("header: got %q, want x-sync-key", s.Auth.EffectiveHeader())
	}
	if s.Session.TTL != 10*time.Minute || s.Session.MaxMonsters != 3 {
		t.Errorf("session: got %+v", s.Session)
	}
	if s.Stream.Interval != 500*time.Millisecond {
		t.Errorf("stream.interval: got %v, want 500ms", s.Stream.Interval)
	}
	if s.Validation.Enabled {
		t.Error("validation.enabled: got true, want false")
	}
	if !s.Kafka.Enabled() || s.Kafka.Topic != "hunts" {
		t.Errorf("kafka: got %+v", s.Kafka)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_KeyEnvResolution(t *testing.T) {
	t.Setenv("TEST_SERVER_KEY", "supersecret")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_SERVER_KEY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown auth mode", `server:
  auth:
    mode: oauth2
`},
		{"port out of range", `server:
  http_port: 70000
`},
		{"negative ttl", `server:
  session:
    ttl: -1m
`},
		{"zero max monsters", `server:
  session:
    max_monsters: 0
`},
		{"zero stream interval", `server:
  stream:
    interval: 0s
`},
		{"kafka without topic", `server:
  kafka:
    brokers: ["localhost:9092"]
    topic: ""
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Load(config.example.yaml): %v", err)
	}
	if cfg.Server.Auth.EffectiveHeader() != "X-Api-Key" {
		t.Errorf("header: got %q", cfg.Server.Auth.EffectiveHeader())
	}
	if cfg.Server.Kafka.Enabled() {
		t.Error("example kafka sink should be disabled")
	}
}
