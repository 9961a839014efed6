package dlog

import "errors"

// ErrCorrupt reports a batch whose bracketing lengths or checksum do not
// match; recovery treats this as the end of valid data in that journal.
var ErrCorrupt = errors.New("dlog: corrupt batch")

// ErrClosed reports an operation attempted on a shard writer after Close.
var ErrClosed = errors.New("dlog: writer closed")

// ErrShardOutOfRange reports a shard index passed to Dlog.Spawn outside
// [0, NumShards).
var ErrShardOutOfRange = errors.New("dlog: shard index out of range")
