// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `agent:` key is ignored by the server binary).
//
// Config fields:
//   - HTTPPort            : port for the receiver, REST API and WebSocket hub (default 8080)
//   - Auth.Mode           : "apikey" or "none"
//   - Auth.KeyEnv         : environment variable holding the expected API key
//   - Auth.Header         : HTTP header name (default "x-api-key")
//   - Session.TTL         : how long an idle session remains live (default 30m)
//   - Session.MaxMonsters : monster slots kept per session (default 16)
//   - Stream.Interval     : WebSocket re-broadcast interval (default 2s)
//   - Validation.Enabled  : JSON-schema check of push bodies (default true)
//   - Kafka.Brokers/Topic : optional sink for accepted batches
//
// Load(path) applies defaults before unmarshalling, then validates.
package config
