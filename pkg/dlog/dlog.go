package dlog

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"regexp"
	"sort"
	"sync/atomic"

	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
)

// ReplayFunc is called once per entry recovered from a shard's journals on
// disk (archived and active alike), in ascending index order within each
// shard. Implementations typically
// apply the entry to the MVCC index via mvcc.Index.Upsert/Delete, passing
// e.Index through as the seqno to preserve the original ordering.
type ReplayFunc func(e Entry) error

// Dlog is a sharded write-ahead log. The public surface is Open (which
// replays what is already on disk through a ReplayFunc) and Spawn (get a
// Writer for a shard); shard selection for a given key is the caller's responsibility
// (e.g. via Shard(key)), so it can stay aligned with a range-partitioned
// disk index one level up.
type Dlog struct {
	fsys   gofs.FS
	cfg    Config
	shards []*shardWriter
	index  atomic.Uint64
}

// Open recovers or creates a Dlog's shards under cfg.Dir, replaying every
// journal not yet purged, the active one included, into fn before
// returning, then starts each shard's writer goroutine.
func Open(fsys gofs.FS, cfg Config, fn ReplayFunc) (*Dlog, error) {
	dl := &Dlog{fsys: fsys, cfg: cfg}
	dl.shards = make([]*shardWriter, cfg.NumShards)

	var maxIndex uint64

	for s := 0; s < cfg.NumShards; s++ {
		sw := newShardWriter(fsys, cfg, cfg.Kind, s, &dl.index)

		files, err := listJournals(fsys, cfg.Dir, cfg.Name, cfg.Kind, s)
		if err != nil {
			return nil, err
		}

		for i, jf := range files {
			data, err := readAll(fsys, jf.path)
			if err != nil {
				return nil, fmt.Errorf("dlog: read journal %q: %w", jf.path, err)
			}

			batches, err := readJournalBatches(data)
			if err != nil {
				return nil, err
			}

			last := lastIndex(batches)
			if last > maxIndex {
				maxIndex = last
			}

			for _, b := range batches {
				for _, e := range b.entries {
					if fn != nil {
						if err := fn(e); err != nil {
							return nil, fmt.Errorf("dlog: replay entry %d: %w", e.Index, err)
						}
					}
				}
			}

			isLast := i == len(files)-1
			if !isLast {
				sw.archived = append(sw.archived, journalMeta{seq: jf.seq, path: jf.path, last: last})
			} else {
				sw.activeNo = jf.seq
			}
		}

		if err := sw.open(); err != nil {
			return nil, err
		}

		dl.shards[s] = sw
	}

	dl.index.Store(maxIndex)

	for _, sw := range dl.shards {
		go sw.run()
	}

	return dl, nil
}

// Shard hashes key to a shard index via FNV-1a, the same stdlib hash
// family pkg/bloom uses, rather than a hand-rolled hash function.
func (dl *Dlog) Shard(key []byte) int {
	h := fnv.New32a()
	_, _ = h.Write(key)

	return int(h.Sum32() % uint32(len(dl.shards)))
}

// Writer is a handle onto one shard, returned by Dlog.Spawn.
type Writer struct {
	sw *shardWriter
}

// Spawn returns a Writer handle bound to the given shard index. Multiple
// writers may coexist per shard; their requests are serialized by the
// shard's own loop, and no writer ever blocks on another shard's.
func (dl *Dlog) Spawn(shard int) (*Writer, error) {
	if shard < 0 || shard >= len(dl.shards) {
		return nil, ErrShardOutOfRange
	}

	return &Writer{sw: dl.shards[shard]}, nil
}

// Set appends a set operation and returns the assigned global index once
// it has been queued (not necessarily flushed to disk yet - callers
// needing durability should pair this with an explicit Flush via a
// PurgeTill(0) no-op or rely on the shard's flush cadence).
func (w *Writer) Set(key, value []byte) (uint64, error) {
	return w.send(OpSet, key, value)
}

// Delete appends a delete operation.
func (w *Writer) Delete(key []byte) (uint64, error) {
	return w.send(OpDelete, key, nil)
}

func (w *Writer) send(op OpKind, key, value []byte) (uint64, error) {
	reply := make(chan opResult, 1)
	w.sw.ops <- opRequest{op: op, key: key, value: value, result: reply}

	res := <-reply

	return res.index, res.err
}

// PurgeTill drops every archived journal on this writer's shard whose last
// index is strictly less than index.
func (w *Writer) PurgeTill(index uint64) error {
	done := make(chan error, 1)
	w.sw.purges <- purgeRequest{till: index, done: done}

	return <-done
}

// Close flushes and closes this Writer's shard, stopping its writer
// goroutine. Close is shard-wide: callers that spawned multiple Writer
// handles on the same shard should only close one of them per shard.
func (w *Writer) Close() error {
	reply := make(chan error, 2)
	w.sw.closeCh <- reply

	err1 := <-reply
	err2 := <-reply

	if err1 != nil {
		return err1
	}

	return err2
}

// Close stops every shard's writer goroutine, flushing pending batches
// first.
func (dl *Dlog) Close() error {
	var firstErr error

	for _, sw := range dl.shards {
		reply := make(chan error, 2)
		sw.closeCh <- reply

		if err := <-reply; err != nil && firstErr == nil {
			firstErr = err
		}

		if err := <-reply; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

type journalFileInfo struct {
	seq  int
	path string
}

var journalNamePattern = regexp.MustCompile(`-shard-(\d+)-journal-(\d+)\.dlog$`)

func listJournals(fsys gofs.FS, dir, name, kind string, shard int) ([]journalFileInfo, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, nil //nolint:nilerr // a not-yet-created Dir simply has no journals
	}

	prefix := fmt.Sprintf("%s-%s-shard-%d-journal-", name, kind, shard)

	var out []journalFileInfo

	for _, de := range entries {
		if de.IsDir() {
			continue
		}

		n := de.Name()
		if len(n) < len(prefix) || n[:len(prefix)] != prefix {
			continue
		}

		m := journalNamePattern.FindStringSubmatch(n)
		if m == nil {
			continue
		}

		var seq int
		if _, err := fmt.Sscanf(m[2], "%d", &seq); err != nil {
			continue
		}

		out = append(out, journalFileInfo{seq: seq, path: filepath.Join(dir, n)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })

	return out, nil
}
