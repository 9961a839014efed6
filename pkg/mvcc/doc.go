// Package mvcc implements the in-memory MVCC index: a persistent
// (copy-on-write) left-leaning red-black tree whose root is published with a
// single atomic store. Readers that grabbed a Snapshot before a concurrent
// Upsert/Delete keep seeing the tree exactly as it was - no locks, no torn
// reads - because no node reachable from an already-published root is ever
// mutated again.
//
// A seqlock over a mutable mmap'd hash table is one way to get lock-free
// concurrent reads: readers snapshot a generation counter, read, then
// re-check the counter and retry on mismatch. This package reaches the
// same goal - stable, torn-read-free concurrent reads against a writer
// that keeps mutating - by a different, and for an in-process ordered
// tree more natural, route: instead of letting readers detect a
// concurrent write and retry, the tree structure itself guarantees a
// reader's root pointer is never changed out from under it. The
// Generation counter is kept anyway, incremented on every publish, so
// callers get a simple "has anything changed" signal.
package mvcc
