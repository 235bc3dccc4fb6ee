package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 8080
	DefaultSessionTTL     = 30 * time.Minute
	DefaultMaxMonsters    = 16
	DefaultStreamInterval = 2 * time.Second
	DefaultKafkaTopic     = "monstersync.batches"
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `agent:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the push receiver, REST API and WebSocket hub
	// listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates incoming HTTP clients.
	Auth AuthConfig `yaml:"auth"`

	// Session controls in-memory session retention.
	Session SessionConfig `yaml:"session"`

	// Stream controls the WebSocket broadcast.
	Stream StreamConfig `yaml:"stream"`

	// Validation toggles JSON-schema validation of push bodies.
	Validation ValidationConfig `yaml:"validation"`

	// Kafka configures the optional batch sink.
	Kafka KafkaConfig `yaml:"kafka"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// SessionConfig controls in-memory session retention.
type SessionConfig struct {
	// TTL is how long a session remains in the store after its last push.
	// Default: 30m.
	TTL time.Duration `yaml:"ttl"`

	// MaxMonsters bounds the number of monster slots kept per session.
	// Pushes for further indexes are dropped. Default: 16.
	MaxMonsters int `yaml:"max_monsters"`
}

// StreamConfig controls WebSocket session streams.
type StreamConfig struct {
	// Interval is the periodic re-broadcast interval. Default: 2s.
	Interval time.Duration `yaml:"interval"`
}

// ValidationConfig toggles schema validation of push requests.
type ValidationConfig struct {
	Enabled bool `yaml:"enabled"`
}

// KafkaConfig configures the batch sink. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Session: SessionConfig{
				TTL:         DefaultSessionTTL,
				MaxMonsters: DefaultMaxMonsters,
			},
			Stream: StreamConfig{
				Interval: DefaultStreamInterval,
			},
			Validation: ValidationConfig{
				Enabled: true,
			},
			Kafka: KafkaConfig{
				Topic: DefaultKafkaTopic,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.Session.TTL < 0 {
		return fmt.Errorf("server.session.ttl must not be negative")
	}
	if s.Session.MaxMonsters <= 0 {
		return fmt.Errorf("server.session.max_monsters must be positive")
	}
	if s.Stream.Interval <= 0 {
		return fmt.Errorf("server.stream.interval must be positive")
	}
	if s.Kafka.Enabled() {
		if strings.TrimSpace(s.Kafka.Topic) == "" {
			return fmt.Errorf("server.kafka.topic is required when brokers are set")
		}
		for _, b := range s.Kafka.Brokers {
			if strings.TrimSpace(b) == "" {
				return fmt.Errorf("server.kafka.brokers: empty broker address")
			}
		}
	}
	return nil
}
