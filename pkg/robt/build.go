package robt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	gofs "github.com/calvinalkan/dgmkv/pkg/fs"

	"github.com/calvinalkan/dgmkv/pkg/block"
	"github.com/calvinalkan/dgmkv/pkg/bloom"
	"github.com/calvinalkan/dgmkv/pkg/entry"
)

// NextFunc pulls the next entry, in ascending key order, for Build to
// consume. ok is false once the source is exhausted.
type NextFunc func() (*entry.Entry, bool, error)

// levelInfo tracks one M-block level's in-progress builder plus enough
// bookkeeping to either flush it into a block or, if it never grows past one
// child, promote that child directly as the tree root.
type levelInfo struct {
	mb *block.MBuilder

	hasFirst       bool
	firstKey       []byte
	firstChildFpos uint64
	firstChildIsZ  bool
}

type builder struct {
	cfg Config

	blk       *block.ZBuilder
	zHasFirst bool
	zFirstKey []byte

	levels []*levelInfo

	indexBuf bytes.Buffer
	fpos     uint64

	vlogBuf bytes.Buffer
	vlogW   *block.VlogWriter

	nEntries int
	nDeleted int
	maxSeqno uint64

	// bloomKeys collects every live key added, so a whole-index filter can
	// be sized and built once the final entry count is known. Left nil
	// when cfg.Bloom is false.
	bloomKeys [][]byte
}

func newBuilder(cfg Config) *builder {
	return &builder{
		cfg:   cfg,
		blk:   block.NewZBuilder(cfg.ZBlockSize),
		vlogW: block.NewVlogWriter(nil, 0), // replaced below once vlogBuf is addressable
	}
}

// Build consumes next to completion and durably publishes a new disk index
// under cfg.Dir. It performs a single bottom-up pass: entries are batched
// into Z-blocks, Z-blocks are summarized into M-blocks, and M-blocks cascade
// upward only as needed.
func Build(fsys gofs.FS, cfg Config, next NextFunc) (Stats, error) {
	bd := newBuilder(cfg)
	bd.vlogW = block.NewVlogWriter(&bd.vlogBuf, 0)

	for {
		e, ok, err := next()
		if err != nil {
			return Stats{}, fmt.Errorf("robt: build: %w", err)
		}

		if !ok {
			break
		}

		if cfg.TombstonePurge != entry.NoCutoff {
			purged, outcome := e.PurgeBefore(cfg.TombstonePurge)
			if outcome == entry.PurgeWhole {
				continue
			}

			e = purged
		}

		if err := bd.add(e); err != nil {
			return Stats{}, fmt.Errorf("robt: build: %w", err)
		}
	}

	rootFpos, rootIsZ, empty, err := bd.finish()
	if err != nil {
		return Stats{}, fmt.Errorf("robt: build: %w", err)
	}

	stats := Stats{
		Name:        cfg.Name,
		ZBlockSize:  cfg.ZBlockSize,
		MBlockSize:  cfg.MBlockSize,
		VBlockSize:  cfg.VBlockSize,
		DeltaOk:     cfg.DeltaOk,
		ValueInVlog: cfg.ValueInVlog,
		NEntries:    bd.nEntries,
		NDeleted:    bd.nDeleted,
		MaxSeqno:    bd.maxSeqno,
		RootFpos:    rootFpos,
		RootIsZ:     rootIsZ,
		Empty:       empty,
		BuildTime:   time.Now().UTC().Format(time.RFC3339),
	}

	if cfg.needsVlog() {
		stats.VlogFile = cfg.VlogFilePath()
	}

	if cfg.Bloom && len(bd.bloomKeys) > 0 {
		fpr := cfg.BloomFPR
		if fpr <= 0 {
			fpr = DefaultBloomFPR
		}

		filter := bloom.New(len(bd.bloomKeys), fpr)
		for _, k := range bd.bloomKeys {
			filter.Add(k)
		}

		blob := filter.Marshal()

		stats.BloomFpos = bd.fpos
		stats.BloomLen = uint64(len(blob))

		bd.indexBuf.Write(blob)
		bd.fpos += uint64(len(blob))
	}

	if err := bd.writeTrailer(stats); err != nil {
		return Stats{}, fmt.Errorf("robt: build: %w", err)
	}

	if err := fsys.MkdirAll(cfg.Dir, 0o755); err != nil {
		return Stats{}, fmt.Errorf("robt: build: mkdir %q: %w", cfg.Dir, err)
	}

	writer := gofs.NewAtomicWriter(fsys)

	if err := writer.WriteWithDefaults(cfg.IndexFile(), bytes.NewReader(bd.indexBuf.Bytes())); err != nil {
		return Stats{}, fmt.Errorf("robt: build: publish index: %w", err)
	}

	if cfg.needsVlog() {
		if err := writer.WriteWithDefaults(cfg.VlogFilePath(), bytes.NewReader(bd.vlogBuf.Bytes())); err != nil {
			return Stats{}, fmt.Errorf("robt: build: publish vlog: %w", err)
		}
	}

	return stats, nil
}

func (bd *builder) add(e *entry.Entry) error {
	ze, err := bd.toZEntry(e)
	if err != nil {
		return err
	}

	if !bd.zHasFirst {
		bd.zFirstKey = e.Key
		bd.zHasFirst = true
	}

	if err := bd.blk.Add(ze); err != nil {
		var overflow *block.Overflow
		if !errors.As(err, &overflow) {
			return err
		}

		if err := bd.flushZ(); err != nil {
			return err
		}

		bd.zFirstKey = e.Key
		bd.zHasFirst = true

		if err := bd.blk.Add(ze); err != nil {
			return fmt.Errorf("entry for key %q does not fit in an empty z-block: %w", e.Key, err)
		}
	}

	bd.nEntries++

	if bd.cfg.Bloom {
		bd.bloomKeys = append(bd.bloomKeys, append([]byte(nil), e.Key...))
	}

	if e.Head.Kind == entry.HeadDelete {
		bd.nDeleted++
	}

	if e.Head.Seqno > bd.maxSeqno {
		bd.maxSeqno = e.Head.Seqno
	}

	return nil
}

func (bd *builder) toZEntry(e *entry.Entry) (block.ZEntry, error) {
	ze := block.ZEntry{
		Key:    e.Key,
		Seqno:  e.Head.Seqno,
		Upsert: e.Head.Kind == entry.HeadUpsert,
	}

	if ze.Upsert {
		raw := e.Head.Value.Bytes()

		if bd.cfg.ValueInVlog {
			fpos, length, err := bd.vlogW.Append(raw)
			if err != nil {
				return block.ZEntry{}, fmt.Errorf("write head value to vlog: %w", err)
			}

			ze.ValueInVlog = true
			ze.VlogFpos = fpos
			ze.VlogLen = length
		} else {
			ze.Value = raw
		}
	}

	if bd.cfg.DeltaOk {
		ze.Deltas = make([]block.ZDelta, len(e.Deltas))

		for i, d := range e.Deltas {
			ze.Deltas[i] = block.ZDelta{
				Upsert: d.Kind == entry.DeltaUpsert,
				Diff:   d.Diff,
				Seqno:  d.Seqno,
			}
		}
	}

	return ze, nil
}

func (bd *builder) flushZ() error {
	if bd.blk.Empty() {
		return nil
	}

	data := bd.blk.Finalize()
	fpos := bd.fpos

	bd.indexBuf.Write(data)
	bd.fpos += uint64(len(data))

	key := bd.zFirstKey
	bd.blk.Reset()
	bd.zHasFirst = false

	return bd.pushChild(0, key, fpos, true)
}

func (bd *builder) pushChild(level int, key []byte, fpos uint64, isZ bool) error {
	for len(bd.levels) <= level {
		bd.levels = append(bd.levels, &levelInfo{mb: block.NewMBuilder(bd.cfg.MBlockSize)})
	}

	li := bd.levels[level]

	if !li.hasFirst {
		li.firstKey = key
		li.firstChildFpos = fpos
		li.firstChildIsZ = isZ
		li.hasFirst = true
	}

	err := li.mb.Add(block.MEntry{Key: key, ChildFpos: fpos, ChildIsZ: isZ})
	if err == nil {
		return nil
	}

	var overflow *block.Overflow
	if !errors.As(err, &overflow) {
		return err
	}

	data := li.mb.Finalize()
	thisFpos := bd.fpos

	bd.indexBuf.Write(data)
	bd.fpos += uint64(len(data))

	parentKey := li.firstKey
	li.mb.Reset()
	li.hasFirst = false

	if err := bd.pushChild(level+1, parentKey, thisFpos, false); err != nil {
		return err
	}

	li.firstKey = key
	li.firstChildFpos = fpos
	li.firstChildIsZ = isZ
	li.hasFirst = true

	if err := li.mb.Add(block.MEntry{Key: key, ChildFpos: fpos, ChildIsZ: isZ}); err != nil {
		return fmt.Errorf("key %q does not fit in an empty m-block: %w", key, err)
	}

	return nil
}

// finish flushes whatever remains pending and collapses the level stack up
// to a single root, skipping the write of any top level that never grows
// past one child (its sole child is used as the root directly).
func (bd *builder) finish() (rootFpos uint64, rootIsZ bool, empty bool, err error) {
	if err := bd.flushZ(); err != nil {
		return 0, false, false, err
	}

	if len(bd.levels) == 0 {
		return 0, false, true, nil
	}

	level := 0

	for {
		li := bd.levels[level]
		top := level == len(bd.levels)-1

		if top && li.mb.Len() == 1 {
			return li.firstChildFpos, li.firstChildIsZ, false, nil
		}

		data := li.mb.Finalize()
		fpos := bd.fpos

		bd.indexBuf.Write(data)
		bd.fpos += uint64(len(data))

		if err := bd.pushChild(level+1, li.firstKey, fpos, false); err != nil {
			return 0, false, false, err
		}

		level++
	}
}

func (bd *builder) writeTrailer(stats Stats) error {
	statsJSON, err := marshalStats(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	if len(statsJSON)+8 > metaBlockSize {
		return fmt.Errorf("stats block (%d bytes) exceeds meta block size %d", len(statsJSON)+8, metaBlockSize)
	}

	statsBlock := make([]byte, metaBlockSize)
	binary.BigEndian.PutUint64(statsBlock[:8], uint64(len(statsJSON)))
	copy(statsBlock[8:], statsJSON)

	bd.indexBuf.Write(statsBlock)
	bd.fpos += metaBlockSize

	marker := bytes.Repeat([]byte{markerByte}, metaBlockSize)
	bd.indexBuf.Write(marker)
	bd.fpos += metaBlockSize

	return nil
}
