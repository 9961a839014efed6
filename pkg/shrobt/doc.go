// Package shrobt partitions a disk index across N independent robt shards
// keyed by range, so a single large disk tier can be built, read, and
// compacted with shard-level parallelism instead of one monolithic file.
//
// Grounded on original_source/shrobt.rs. Parallel build/compact uses
// golang.org/x/sync/errgroup, carried from the corpus's edirooss-zmux-server
// go.mod, the ecosystem's standard "N parallel jobs, first error wins" tool.
package shrobt
