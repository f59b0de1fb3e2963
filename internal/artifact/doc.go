// Package artifact defines the prefix-namespaced dataset store that pipeline
// stages produce into and consume from.
//
// # Purpose
//
// Producer stages write named, immutable byte payloads; consumer stages read
// them back by (prefix, name). The store is the only shared mutable resource
// stages touch, so its contract carries the concurrency guarantees the rest
// of the system leans on:
//
//   - **Immutability:** Put is a per-key compare-and-set; a second write to
//     the same key fails with ErrDuplicateKey instead of overwriting.
//   - **Read-after-write:** a dataset is visible to List/Get as soon as the
//     producer's Put returns; there is no eventual-consistency window.
//   - **Deterministic listing:** List returns names in lexical order so
//     aggregation stages behave identically run to run.
//
// # Backends
//
// The subpackages provide the concrete implementations: memory (default for
// tests and single-process runs), local (filesystem tree, shared with the
// datacli tool), s3 (conditional-write objects), and redis (SetNX keys with
// a per-prefix index). Stores are dependency-injected into stages at
// construction; nothing in this module reaches for a global store.
//
// Scoped wraps any backend so each run keeps its datasets under its own
// prefix without coordination between runs.
package artifact
