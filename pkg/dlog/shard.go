package dlog

import (
	"fmt"
	"os"
	"sync/atomic"

	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
)

// opRequest is one write request sent to a shard's writer loop.
type opRequest struct {
	op     OpKind
	key    []byte
	value  []byte
	result chan opResult
}

type opResult struct {
	index uint64
	err   error
}

type purgeRequest struct {
	till uint64
	done chan error
}

// shardWriter owns one shard's active journal and the goroutine serializing
// writes to it. It mirrors the request-channel shape of the original
// writer-thread loop (Op/PurgeTill/Close), translated into Go's
// goroutine+channel idiom.
type shardWriter struct {
	fsys gofs.FS
	cfg  Config
	kind string
	id   int

	globalIndex *atomic.Uint64

	ops     chan opRequest
	purges  chan purgeRequest
	closeCh chan chan error

	archived []journalMeta
	active   gofs.File
	activeNo int
	activeSz int

	pending []Entry
}

// journalMeta tracks enough about an archived journal file to support
// purge_till without reopening it.
type journalMeta struct {
	seq  int
	path string
	last uint64 // highest entry index contained in this journal
}

func newShardWriter(fsys gofs.FS, cfg Config, kind string, id int, globalIndex *atomic.Uint64) *shardWriter {
	return &shardWriter{
		fsys:        fsys,
		cfg:         cfg,
		kind:        kind,
		id:          id,
		globalIndex: globalIndex,
		ops:         make(chan opRequest, cfg.ChannelBuffer),
		purges:      make(chan purgeRequest, 1),
		closeCh:     make(chan chan error),
	}
}

func (sw *shardWriter) open() error {
	path := journalFile(sw.cfg.Dir, sw.cfg.Name, sw.kind, sw.id, sw.activeNo)

	f, err := sw.fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("dlog: open journal %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("dlog: stat journal %q: %w", path, err)
	}

	sw.active = f
	sw.activeSz = int(info.Size())

	return nil
}

// run is the shard's writer loop: drain ops, periodically flush the
// pending batch, honor purge and close requests. It is meant to run on its
// own goroutine, started by Dlog.
func (sw *shardWriter) run() {
	for {
		select {
		case req, ok := <-sw.ops:
			if !ok {
				return
			}

			sw.handleOp(req)

			sw.drainAndMaybeFlush()

		case req := <-sw.purges:
			req.done <- sw.purgeTill(req.till)

		case reply := <-sw.closeCh:
			reply <- sw.flush()

			if sw.active != nil {
				reply <- sw.active.Close()
			}

			return
		}
	}
}

func (sw *shardWriter) handleOp(req opRequest) {
	idx := sw.globalIndex.Add(1)

	sw.pending = append(sw.pending, Entry{Index: idx, Op: req.op, Key: req.key, Value: req.value})

	req.result <- opResult{index: idx}
}

// drainAndMaybeFlush opportunistically absorbs any ops already queued
// (so a burst of writes fills one batch instead of one-batch-per-entry),
// then flushes once the channel is empty or the pending batch has grown
// past FlushEntries.
func (sw *shardWriter) drainAndMaybeFlush() {
	for len(sw.pending) < sw.cfg.FlushEntries {
		select {
		case req, ok := <-sw.ops:
			if !ok {
				_ = sw.flush()

				return
			}

			sw.handleOp(req)
		default:
			_ = sw.flush()

			return
		}
	}

	_ = sw.flush()
}

func (sw *shardWriter) flush() error {
	if len(sw.pending) == 0 {
		return nil
	}

	if sw.activeSz+estimateBatchSize(sw.pending) > sw.cfg.JournalLimit {
		if err := sw.rotate(); err != nil {
			return err
		}
	}

	b := batch{firstIndex: sw.pending[0].Index, entries: sw.pending}

	if err := appendBatch(sw.active, b); err != nil {
		return err
	}

	sw.activeSz += len(encodeBatch(b))
	sw.pending = nil

	return nil
}

func estimateBatchSize(entries []Entry) int {
	n := 64
	for _, e := range entries {
		n += 17 + len(e.Key) + len(e.Value)
	}

	return n
}

func (sw *shardWriter) rotate() error {
	path := journalFile(sw.cfg.Dir, sw.cfg.Name, sw.kind, sw.id, sw.activeNo)

	data, err := readAll(sw.fsys, path)
	if err != nil {
		return fmt.Errorf("dlog: read rotated journal %q: %w", path, err)
	}

	batches, err := readJournalBatches(data)
	if err != nil {
		return err
	}

	last := lastIndex(batches)

	if err := sw.active.Close(); err != nil {
		return fmt.Errorf("dlog: close rotated journal: %w", err)
	}

	sw.archived = append(sw.archived, journalMeta{
		seq:  sw.activeNo,
		path: path,
		last: last,
	})

	sw.activeNo++

	return sw.open()
}

// purgeTill drops, in order, every archived journal whose last index is
// strictly less than till. The active journal is never removed.
func (sw *shardWriter) purgeTill(till uint64) error {
	kept := sw.archived[:0]

	for _, jm := range sw.archived {
		if jm.last < till {
			if err := sw.fsys.Remove(jm.path); err != nil {
				return fmt.Errorf("dlog: purge journal %q: %w", jm.path, err)
			}

			continue
		}

		kept = append(kept, jm)
	}

	sw.archived = kept

	return nil
}
