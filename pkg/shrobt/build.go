package shrobt

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/dgmkv/pkg/entry"
	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
	"github.com/calvinalkan/dgmkv/pkg/robt"
)

// Build drains next to completion, range-partitions the entries into
// cfg.NumShards roughly-equal groups by count, and builds each shard's robt
// index in parallel via errgroup before publishing the root manifest.
//
// Partitioning requires the full key set up front to compute equal-weight
// boundaries, so unlike robt.Build this is not a single streaming pass: the
// source is drained into memory first. A shard rebalance already requires
// walking every shard's partition list to regroup, so this trades
// robt.Build's pure streaming bottom-up pass for that simplicity.
func Build(fsys gofs.FS, cfg Config, next robt.NextFunc) ([]robt.Stats, error) {
	if cfg.NumShards <= 0 {
		return nil, ErrEmpty
	}

	var all []*entry.Entry

	for {
		e, ok, err := next()
		if err != nil {
			return nil, fmt.Errorf("shrobt: build: drain source: %w", err)
		}

		if !ok {
			break
		}

		all = append(all, e)
	}

	groups := partition(all, cfg.NumShards)

	return buildGroups(fsys, cfg, groups)
}

// partition splits entries (already in ascending key order) into n
// contiguous, roughly-equal-count groups. Trailing empty groups are
// possible when len(entries) < n.
func partition(entries []*entry.Entry, n int) [][]*entry.Entry {
	groups := make([][]*entry.Entry, n)

	if len(entries) == 0 {
		return groups
	}

	per := (len(entries) + n - 1) / n

	for i := 0; i < n; i++ {
		lo := i * per
		if lo > len(entries) {
			lo = len(entries)
		}

		hi := lo + per
		if hi > len(entries) {
			hi = len(entries)
		}

		groups[i] = entries[lo:hi]
	}

	return groups
}

func buildGroups(fsys gofs.FS, cfg Config, groups [][]*entry.Entry) ([]robt.Stats, error) {
	stats := make([]robt.Stats, len(groups))

	var g errgroup.Group

	for i, group := range groups {
		i, group := i, group

		g.Go(func() error {
			shardCfg := cfg.shardConfig(i)

			s, err := robt.Build(fsys, shardCfg, sliceSource(group))
			if err != nil {
				return fmt.Errorf("shrobt: build shard %d: %w", i, err)
			}

			stats[i] = s

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	man := manifest{NumShards: len(groups), HighKeys: highKeys(groups)}

	if err := writeManifest(fsys, manifestPath(cfg.Dir, cfg.Name, cfg.Kind), man); err != nil {
		return nil, err
	}

	return stats, nil
}

// highKeys returns each shard's excluded upper bound: the first key of the
// next non-empty shard, nil for the last shard (unbounded).
func highKeys(groups [][]*entry.Entry) [][]byte {
	out := make([][]byte, len(groups))

	for i := range groups {
		for j := i + 1; j < len(groups); j++ {
			if len(groups[j]) > 0 {
				out[i] = groups[j][0].Key

				break
			}
		}
	}

	return out
}

func sliceSource(entries []*entry.Entry) robt.NextFunc {
	i := 0

	return func() (*entry.Entry, bool, error) {
		if i >= len(entries) {
			return nil, false, nil
		}

		e := entries[i]
		i++

		return e, true, nil
	}
}
