package shrobt

import "errors"

var (
	// ErrManifestCorrupt reports a root manifest that failed to decode.
	ErrManifestCorrupt = errors.New("shrobt: corrupt root manifest")

	// ErrOutOfRange reports a key outside every shard's bound, which should
	// never happen since the last shard's bound is always unbounded.
	ErrOutOfRange = errors.New("shrobt: key outside every shard bound")

	// ErrEmpty reports an operation that requires at least one shard.
	ErrEmpty = errors.New("shrobt: no shards")
)
