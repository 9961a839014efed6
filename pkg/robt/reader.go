package robt

import (
	"bytes"
	"fmt"

	gofs "github.com/calvinalkan/dgmkv/pkg/fs"

	"github.com/calvinalkan/dgmkv/pkg/block"
	"github.com/calvinalkan/dgmkv/pkg/bloom"
	"github.com/calvinalkan/dgmkv/pkg/entry"
)

// Reader is a read-only, resident view over one disk index shard. The index
// and value-log files are read fully into memory on Open; blocks are parsed
// on demand from the resident bytes.
type Reader struct {
	cfg   Config
	stats Stats

	index []byte
	vlog  *block.VlogReader
	bloom *bloom.Filter // nil when the index was built without one
}

// Open reads the index file named by cfg (and its value-log, if configured)
// fully into memory and validates the trailer.
func Open(fsys gofs.FS, cfg Config) (*Reader, error) {
	data, err := fsys.ReadFile(cfg.IndexFile())
	if err != nil {
		return nil, fmt.Errorf("robt: open %q: %w", cfg.IndexFile(), err)
	}

	if len(data) < 2*metaBlockSize {
		return nil, fmt.Errorf("%w: index file %q too small", block.ErrCorrupt, cfg.IndexFile())
	}

	marker := data[len(data)-metaBlockSize:]
	for _, b := range marker {
		if b != markerByte {
			return nil, fmt.Errorf("%w: index file %q has a corrupt marker block", block.ErrCorrupt, cfg.IndexFile())
		}
	}

	statsBlock := data[len(data)-2*metaBlockSize : len(data)-metaBlockSize]
	n := beUint64(statsBlock[:8])

	if 8+n > uint64(len(statsBlock)) {
		return nil, fmt.Errorf("%w: index file %q has a corrupt stats block", block.ErrCorrupt, cfg.IndexFile())
	}

	stats, err := unmarshalStats(statsBlock[8 : 8+n])
	if err != nil {
		return nil, fmt.Errorf("%w: index file %q: decode stats: %v", block.ErrCorrupt, cfg.IndexFile(), err)
	}

	r := &Reader{cfg: cfg, stats: stats, index: data}

	if stats.BloomLen > 0 {
		end := stats.BloomFpos + stats.BloomLen
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: index file %q has a corrupt bloom blob", block.ErrCorrupt, cfg.IndexFile())
		}

		filter, err := bloom.Unmarshal(data[stats.BloomFpos:end])
		if err != nil {
			return nil, fmt.Errorf("%w: index file %q: decode bloom filter: %v", block.ErrCorrupt, cfg.IndexFile(), err)
		}

		r.bloom = filter
	}

	if stats.ValueInVlog {
		vlogData, err := fsys.ReadFile(cfg.VlogFilePath())
		if err != nil {
			return nil, fmt.Errorf("robt: open vlog %q: %w", cfg.VlogFilePath(), err)
		}

		r.vlog = block.NewVlogReader(bytes.NewReader(vlogData))
	}

	return r, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}

	return v
}

// Stats returns the index's build-time metadata.
func (r *Reader) Stats() Stats { return r.stats }

// Close releases the reader. The resident byte slices are left for the
// garbage collector.
func (r *Reader) Close() error { return nil }

// Get looks up key and, if found, reconstructs its *entry.Entry (head plus
// delta chain, per the index's DeltaOk setting). dec decodes raw value
// bytes into entry.Value implementations.
func (r *Reader) Get(key []byte, dec entry.Decoder) (*entry.Entry, bool, error) {
	if r.stats.Empty {
		return nil, false, nil
	}

	fpos, isZ := r.stats.RootFpos, r.stats.RootIsZ

	for !isZ {
		mb, err := r.parseM(fpos)
		if err != nil {
			return nil, false, err
		}

		me, err := mb.Lookup(key, bytes.Compare)
		if err != nil {
			return nil, false, nil //nolint:nilerr // key precedes every entry: definite miss
		}

		fpos, isZ = me.ChildFpos, me.ChildIsZ
	}

	if r.bloom != nil && !r.bloom.MayContain(key) {
		return nil, false, nil
	}

	zb, err := r.parseZ(fpos)
	if err != nil {
		return nil, false, err
	}

	idx, exact, err := zb.Search(key, bytes.Compare)
	if err != nil {
		return nil, false, err
	}

	if !exact {
		return nil, false, nil
	}

	ze, err := zb.EntryAt(idx)
	if err != nil {
		return nil, false, err
	}

	e, err := r.toEntry(ze, dec)
	if err != nil {
		return nil, false, err
	}

	return e, true, nil
}

func (r *Reader) parseM(fpos uint64) (*block.MBlock, error) {
	end := fpos + uint64(r.stats.MBlockSize)
	if end > uint64(len(r.index)) {
		return nil, fmt.Errorf("%w: m-block fpos %d out of range", block.ErrCorrupt, fpos)
	}

	return block.ParseMBlock(r.index[fpos:end])
}

func (r *Reader) parseZ(fpos uint64) (*block.ZBlock, error) {
	end := fpos + uint64(r.stats.ZBlockSize)
	if end > uint64(len(r.index)) {
		return nil, fmt.Errorf("%w: z-block fpos %d out of range", block.ErrCorrupt, fpos)
	}

	return block.ParseZBlock(r.index[fpos:end])
}

func (r *Reader) toEntry(ze block.ZEntry, dec entry.Decoder) (*entry.Entry, error) {
	head := entry.Head{Seqno: ze.Seqno}

	if ze.Upsert {
		raw := ze.Value

		if ze.ValueInVlog {
			var err error

			raw, err = r.vlog.ReadAt(ze.VlogFpos, ze.VlogLen)
			if err != nil {
				return nil, fmt.Errorf("resolve vlog value: %w", err)
			}
		}

		v, err := dec(raw)
		if err != nil {
			return nil, fmt.Errorf("decode head value: %w", err)
		}

		head.Kind = entry.HeadUpsert
		head.Value = v
	} else {
		head.Kind = entry.HeadDelete
	}

	var deltas []entry.Delta
	if len(ze.Deltas) > 0 {
		deltas = make([]entry.Delta, len(ze.Deltas))

		for i, zd := range ze.Deltas {
			kind := entry.DeltaDelete
			if zd.Upsert {
				kind = entry.DeltaUpsert
			}

			deltas[i] = entry.Delta{Kind: kind, Diff: zd.Diff, Seqno: zd.Seqno}
		}
	}

	return &entry.Entry{Key: ze.Key, Head: head, Deltas: deltas}, nil
}
