package shrobt

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/dgmkv/pkg/entry"
	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
	"github.com/calvinalkan/dgmkv/pkg/robt"
)

// Compact rebuilds every shard in place with the same tombstone cutoff
// applied, in parallel. Shard bounds are unchanged: only a rebalance pass
// repartitions the key space.
func Compact(fsys gofs.FS, cfg Config, src *Reader, cutoff entry.Cutoff, dec entry.Decoder) ([]robt.Stats, error) {
	if len(src.shards) == 0 {
		return nil, ErrEmpty
	}

	stats := make([]robt.Stats, len(src.shards))

	var g errgroup.Group

	for i, shard := range src.shards {
		i, shard := i, shard

		g.Go(func() error {
			shardCfg := cfg.shardConfig(i)
			shardCfg.TombstonePurge = cutoff

			s, err := robt.Compact(fsys, shardCfg, shard, dec)
			if err != nil {
				return fmt.Errorf("shrobt: compact shard %d: %w", i, err)
			}

			stats[i] = s

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return stats, nil
}
