// Package security inspects the TLS certificate presented by monstersync-server
// so the agent can warn before the server certificate expires.
package security
