package dlog

// Config parameterizes a Dlog.
type Config struct {
	Dir  string
	Name string
	Kind string // e.g. "backup"; distinguishes journal families sharing a Dir.

	NumShards int

	// JournalLimit is the approximate byte size at which an active journal
	// rotates into an archived one and a fresh active journal begins.
	JournalLimit int

	// FlushEntries caps how many pending entries a shard accumulates before
	// forcing a flush, even if the request channel hasn't drained.
	FlushEntries int

	// ChannelBuffer sizes each shard's op request channel.
	ChannelBuffer int
}

// DefaultConfig returns a Config with four shards, 16MiB journals, and
// modest batching.
func DefaultConfig(dir, name string) Config {
	return Config{
		Dir:           dir,
		Name:          name,
		Kind:          "backup",
		NumShards:     4,
		JournalLimit:  16 * 1024 * 1024,
		FlushEntries:  256,
		ChannelBuffer: 1024,
	}
}
