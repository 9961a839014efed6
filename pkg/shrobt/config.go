package shrobt

import (
	"strconv"

	"github.com/calvinalkan/dgmkv/pkg/entry"
	"github.com/calvinalkan/dgmkv/pkg/robt"
)

// Config parameterizes one sharded disk index.
type Config struct {
	Dir  string
	Name string
	Kind string // disk-tier family, e.g. "backup"

	NumShards int

	// Disk is the per-shard robt.Config template; Dir/Name are overwritten
	// per shard before use.
	Disk robt.Config

	Decoder entry.Decoder
}

// DefaultConfig returns a Config with 4 shards and robt's default block
// sizing for every shard.
func DefaultConfig(dir, name string) Config {
	return Config{
		Dir:       dir,
		Name:      name,
		Kind:      "backup",
		NumShards: 4,
		Disk:      robt.DefaultConfig(dir, name),
	}
}

func (c Config) shardConfig(i int) robt.Config {
	sc := c.Disk
	sc.Dir = c.Dir
	sc.Name = shardName(c.Name, i)

	return sc
}

func shardName(name string, i int) string {
	return name + "-shard-" + strconv.Itoa(i)
}
