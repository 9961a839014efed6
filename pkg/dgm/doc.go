// Package dgm implements the LSM orchestrator: it owns one write-active
// in-memory tier (pkg/mvcc) plus a fixed-capacity array of disk tiers
// (pkg/robt), and drives commit (flush memory to disk) and compact (merge
// disk levels) while keeping a small TOML root manifest as the single
// source of truth for what is currently on disk.
//
// The name echoes the source project's own orchestrator type. Its shape
// is recovered from original_source/wal_thread.rs's writer-thread loop and
// the commit/compact procedures this engine needs, expressed with the
// concurrency idioms the rest of this module already uses: goroutines,
// channels, and a single mutex guarding structural transitions.
package dgm
