// Package types defines the wire types shared by the agent and the server.
//
// MonsterModel is the flat snapshot of one tracked monster slot. Its Parts
// and Ailments, and the Monsters list of a PushRequest, are compact.List
// values so the JSON form uses columnar compaction.
//
// Equality is structural (MonsterModel.Equal); the agent uses it to drop
// no-op updates before they are queued.
package types
