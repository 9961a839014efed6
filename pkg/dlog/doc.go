// Package dlog implements a sharded, append-only write-ahead log: a
// durability layer that sits in front of the MVCC index, batches incoming
// operations, and replays them on startup to reconstruct the memory tier.
//
// A Dlog is divided into S independent shards, each with its own journal
// files, its own writer goroutine, and its own flush cadence; a single
// atomic counter hands out globally monotonic entry indices across all
// shards. The on-disk batch framing is bracketed by a repeated length field
// and a CRC32-C checksum: a batch is either fully present or treated as
// corrupt from that point forward during recovery, never partially
// trusted.
package dlog
