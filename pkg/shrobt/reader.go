package shrobt

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/calvinalkan/dgmkv/pkg/entry"
	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
	"github.com/calvinalkan/dgmkv/pkg/robt"
)

// Reader is a read-only view over a sharded disk index: N independent
// robt.Reader shards plus the high-key bounds that route a lookup to the
// right one.
type Reader struct {
	cfg      Config
	shards   []*robt.Reader
	shardCfg []robt.Config
	highKeys [][]byte
}

// Open reads the root manifest and opens every shard it names.
func Open(fsys gofs.FS, cfg Config) (*Reader, error) {
	man, err := readManifest(fsys, manifestPath(cfg.Dir, cfg.Name, cfg.Kind))
	if err != nil {
		return nil, err
	}

	r := &Reader{cfg: cfg, highKeys: man.HighKeys}
	r.shards = make([]*robt.Reader, man.NumShards)
	r.shardCfg = make([]robt.Config, man.NumShards)

	for i := 0; i < man.NumShards; i++ {
		shardCfg := cfg.shardConfig(i)
		r.shardCfg[i] = shardCfg

		sr, err := robt.Open(fsys, shardCfg)
		if err != nil {
			return nil, fmt.Errorf("shrobt: open shard %d: %w", i, err)
		}

		r.shards[i] = sr
	}

	return r, nil
}

// shardFor locates the shard whose range contains key: the first shard
// whose high-key bound is nil (unbounded) or strictly greater than key.
func (r *Reader) shardFor(key []byte) int {
	idx := sort.Search(len(r.highKeys), func(i int) bool {
		return r.highKeys[i] == nil || bytes.Compare(key, r.highKeys[i]) < 0
	})

	if idx == len(r.highKeys) {
		idx = len(r.highKeys) - 1
	}

	return idx
}

// Get locates key's shard by binary search on high-key bounds and delegates.
func (r *Reader) Get(key []byte, dec entry.Decoder) (*entry.Entry, bool, error) {
	if len(r.shards) == 0 {
		return nil, false, ErrEmpty
	}

	return r.shards[r.shardFor(key)].Get(key, dec)
}

// Scan returns a pull iterator over every entry across every shard, in
// ascending key order, shard by shard.
func (r *Reader) Scan(dec entry.Decoder) (robt.NextFunc, error) {
	shardIdx := 0

	var cur robt.NextFunc

	advance := func() (*entry.Entry, bool, error) {
		for {
			if cur == nil {
				if shardIdx >= len(r.shards) {
					return nil, false, nil
				}

				next, err := r.shards[shardIdx].Scan(dec)
				if err != nil {
					return nil, false, err
				}

				cur = next
				shardIdx++
			}

			e, ok, err := cur()
			if err != nil {
				return nil, false, err
			}

			if ok {
				return e, true, nil
			}

			cur = nil
		}
	}

	return advance, nil
}

// Stats sums NEntries/NDeleted/MaxSeqno across every shard.
func (r *Reader) Stats() robt.Stats {
	var out robt.Stats

	for _, s := range r.shards {
		st := s.Stats()
		out.NEntries += st.NEntries
		out.NDeleted += st.NDeleted

		if st.MaxSeqno > out.MaxSeqno {
			out.MaxSeqno = st.MaxSeqno
		}
	}

	return out
}

// NumShards reports the shard count.
func (r *Reader) NumShards() int { return len(r.shards) }

// Close releases every shard reader.
func (r *Reader) Close() error {
	for _, s := range r.shards {
		_ = s.Close()
	}

	return nil
}
