// Package store holds the live state of every sync session in memory: the
// latest monster model per slot index, with TTL eviction of idle sessions.
package store
