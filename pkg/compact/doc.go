// Package compact implements the columnar compaction transform used on the
// wire between monstersync-agent and monstersync-server.
//
// A JSON array of same-shaped objects repeats every field name once per
// element. Compaction hoists the names into a shared header:
//
//	[{"id":"head","health":50},{"id":"tail","health":80}]
//
// becomes
//
//	["$__",["id","health"],["head",50],["tail",80]]
//
// Field names are taken from the first element only. Every other element is
// written positionally in its own field order, so callers must only compact
// arrays whose elements share the same field set and order. Elements of a Go
// slice of one struct type satisfy this unless they use omitempty.
//
// An empty array stays []. Decode accepts both the compacted form and the
// conventional array form.
//
// List[T] applies the transform through encoding/json when T is a struct (or
// pointer to struct). For any other element type it marshals as a plain array.
package compact
