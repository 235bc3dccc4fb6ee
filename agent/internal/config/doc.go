// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Agent}: full config tree parsed from YAML
//   - AgentConfig: server_endpoint, session_id, session_file, log_level,
//     metrics_addr, push, server_auth, replay
//   - PushConfig: enabled, idle/throttle/backoff intervals, retry_ceiling,
//     send_timeout, compress
//   - AuthConfig: mode (mtls|apikey|none), cert/key/ca files, header,
//     key_env; Key() resolves the API key from the environment
//   - ReplayConfig: path, interval, loop
//
// Load(path) reads the YAML file, applies defaults (50ms idle, 300ms throttle,
// 10s backoff, 10 retries, 10s send timeout), then validates required fields
// and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to detect changes to the config
// file and to the session file it names, and calls onChange with the newly
// parsed Config. It handles the rename→create pattern used by atomic-save
// editors (vim, VS Code) by re-adding the watch after each reload.
package config
