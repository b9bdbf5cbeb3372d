// Package fingerprint persists perceptual fingerprints keyed by canonical
// identifiers and serves them through a two-level read-through cache.
//
// The durable layer is a SQLite database indexed by identifier and by
// format-insensitive key, so a JPEG and a re-encoded PNG of the same logical
// image resolve to one fingerprint without recomputation. The in-memory layer
// is an unbounded map: this is a cache of computed work, not a size-bounded
// cache, and records are never evicted.
//
// Multi-process coordination avoids locking by restricting durable writes to a
// single coordinating process. Worker caches run with persistence disabled and
// accumulate pending records; the Coordinator merges them into SQLite under a
// file lock after the parallel phase finishes.
package fingerprint
