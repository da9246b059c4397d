// Package store provides the namespaced key-value persistence used by goCrud
// and a generic repository that layers record semantics on top of it.
//
// # Layout
//
// A store is split into trees, one per entity kind ("user", "group",
// "auth", ...). Each tree is a flat mapping from a record key (its nid) to
// the record encoded by a [Codec]. The Redis implementation keeps one hash
// per tree under "<prefix>:<tree>".
//
// # Concurrency
//
// The only synchronization primitive is per-key compare-and-swap executed
// by the store itself (HSETNX and Lua scripts for Redis, a mutex for the
// in-memory store). [Repository.Create] is an insert-if-absent,
// [Repository.Swap] and [Repository.Delete] compare against the caller's
// last-known value. Nothing spans multiple keys.
//
// # What this package must NOT do
//
//   - Retry on conflicts or transient failures; every error reaches the caller.
//   - Interpret record contents beyond encoding and byte comparison.
//   - Import the goCrud engine (session is the only upward-facing import).
package store
