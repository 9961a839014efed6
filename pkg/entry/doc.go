// Package entry implements the versioned key/value entry model shared by
// every tier of the storage engine: the MVCC memory index, the immutable
// on-disk B-tree, and the LSM orchestrator's commit/compact paths all
// operate on [Entry] values.
//
// An Entry binds one key to a value head plus an ordered chain of deltas
// representing older versions, newest first. Deltas let the engine keep a
// bounded history of a key's past values (LSM mode) without storing each
// version's full payload - only the bytes needed to reconstruct the
// previous version from the next one.
package entry
