package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultIdleInterval     = 50 * time.Millisecond
	DefaultThrottleInterval = 300 * time.Millisecond
	DefaultBackoffInterval  = 10 * time.Second
	DefaultRetryCeiling     = 10
	DefaultSendTimeout      = 10 * time.Second
	DefaultReplayInterval   = 100 * time.Millisecond
	DefaultAPIKeyHeader     = "X-Api-Key"
	DefaultLogLevel         = "info"
)

// LevelTrace is the slog level selected by log_level: trace.
const LevelTrace = slog.Level(-8)

// Config is the top-level agent configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// ServerEndpoint is the base URL of monstersync-server (http or https).
	ServerEndpoint string `yaml:"server_endpoint"`

	// SessionID is the session pushes are sent to. Empty pauses pushing.
	SessionID string `yaml:"session_id"`

	// SessionFile, when set, names a file whose trimmed content is the
	// session ID. It takes precedence over SessionID and is watched for changes.
	SessionFile string `yaml:"session_file"`

	// LogLevel is one of: trace | debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// MetricsAddr is the listen address of the Prometheus text endpoint.
	// Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	// Push controls the push loop.
	Push PushConfig `yaml:"push"`

	// ServerAuth configures how the agent authenticates to monstersync-server.
	ServerAuth AuthConfig `yaml:"server_auth"`

	// Replay configures the recorded-session producer.
	Replay ReplayConfig `yaml:"replay"`
}

// PushConfig holds push loop timings.
type PushConfig struct {
	// Enabled starts the push worker. Toggling it at runtime starts or stops
	// the worker.
	Enabled bool `yaml:"enabled"`

	IdleInterval     time.Duration `yaml:"idle_interval"`
	ThrottleInterval time.Duration `yaml:"throttle_interval"`
	BackoffInterval  time.Duration `yaml:"backoff_interval"`

	// RetryCeiling is the number of consecutive failed sends after which
	// pushing stops until the worker is restarted.
	RetryCeiling int `yaml:"retry_ceiling"`

	// SendTimeout bounds one HTTP request.
	SendTimeout time.Duration `yaml:"send_timeout"`

	// Compress gzips request bodies.
	Compress bool `yaml:"compress"`
}

// AuthConfig specifies how the agent authenticates to the server.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the HTTP header the API key is sent in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// ReplayConfig configures playback of a recorded session.
type ReplayConfig struct {
	// Path is a JSON-lines recording. Empty disables replay.
	Path string `yaml:"path"`

	// Interval is the delay between recorded ticks.
	Interval time.Duration `yaml:"interval"`

	// Loop restarts the recording after the last tick.
	Loop bool `yaml:"loop"`
}

// Session resolves the session ID: the content of SessionFile when set,
// otherwise SessionID. A missing session file yields "".
func (a AgentConfig) Session() string {
	if a.SessionFile == "" {
		return strings.TrimSpace(a.SessionID)
	}
	b, err := os.ReadFile(a.SessionFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// Level returns the slog level for LogLevel.
func (a AgentConfig) Level() slog.Level {
	lvl, _ := parseLevel(a.LogLevel)
	return lvl
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			LogLevel: DefaultLogLevel,
			Push: PushConfig{
				Enabled:          true,
				IdleInterval:     DefaultIdleInterval,
				ThrottleInterval: DefaultThrottleInterval,
				BackoffInterval:  DefaultBackoffInterval,
				RetryCeiling:     DefaultRetryCeiling,
				SendTimeout:      DefaultSendTimeout,
			},
			ServerAuth: AuthConfig{
				Header: DefaultAPIKeyHeader,
			},
			Replay: ReplayConfig{
				Interval: DefaultReplayInterval,
			},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.ServerEndpoint == "" {
		return fmt.Errorf("agent.server_endpoint is required")
	}
	u, err := url.Parse(a.ServerEndpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("agent.server_endpoint must be an http(s) URL, got %q", a.ServerEndpoint)
	}
	if _, ok := parseLevel(a.LogLevel); !ok {
		return fmt.Errorf("agent.log_level: unknown level %q", a.LogLevel)
	}
	if a.Push.IdleInterval <= 0 {
		return fmt.Errorf("agent.push.idle_interval must be positive")
	}
	if a.Push.ThrottleInterval <= 0 {
		return fmt.Errorf("agent.push.throttle_interval must be positive")
	}
	if a.Push.BackoffInterval <= 0 {
		return fmt.Errorf("agent.push.backoff_interval must be positive")
	}
	if a.Push.RetryCeiling <= 0 {
		return fmt.Errorf("agent.push.retry_ceiling must be positive")
	}
	if a.Push.SendTimeout < 0 {
		return fmt.Errorf("agent.push.send_timeout must not be negative")
	}
	switch a.ServerAuth.Mode {
	case "mtls":
		if a.ServerAuth.CertFile == "" || a.ServerAuth.KeyFile == "" {
			return fmt.Errorf("agent.server_auth: mtls requires cert_file and key_file")
		}
	case "apikey", "none", "":
	default:
		return fmt.Errorf("agent.server_auth: unknown mode %q", a.ServerAuth.Mode)
	}
	if a.Replay.Path != "" && a.Replay.Interval <= 0 {
		return fmt.Errorf("agent.replay.interval must be positive")
	}
	return nil
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
