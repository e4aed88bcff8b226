// Package store provides SQLite-backed durable storage for elaborated
// modules and the indices the elaborator keeps over them.
//
// The store holds:
//   - Objects: modules, serialized as JSON, keyed by an integer id
//   - Named indices: one id per (name, key), e.g. signature -> module id
//   - List indices: ordered sets of members per (name, key), e.g. unit ->
//     signatures derived from it
//   - Builds: one row per elaboration run, keyed by run id
//
// # Ordering
//
// List members keep insertion order through a per-list seq column. All list
// queries use ORDER BY seq ASC so results are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Primitive operations are atomic. Sequences that must be atomic as a whole
// (check-then-create of a module) are serialized by the caller.
package store
