package mvcc

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/calvinalkan/dgmkv/pkg/entry"
)

// ErrCASMismatch reports that UpsertCAS's expected seqno did not match the
// key's current seqno (or its expectation that the key not exist).
var ErrCASMismatch = errors.New("mvcc: cas mismatch")

// Index is the in-memory MVCC index: a persistent LLRB tree behind a
// single atomic root pointer, plus the monotonic seqno/generation counters
// every write advances.
//
// Readers call Snapshot to pin the current root; Upsert and Delete take mu
// only to serialize writers against each other; they never block a
// concurrent Snapshot or a Snapshot already taken.
type Index struct {
	root       atomic.Pointer[node]
	mu         sync.Mutex
	seqno      atomic.Uint64
	generation atomic.Uint64
	lsm        bool
}

// New constructs an empty index. lsm selects whether Upsert/Delete retain a
// delta chain of older versions (LSM mode) or simply overwrite the head.
func New(lsm bool) *Index {
	return &Index{lsm: lsm}
}

// SeedSeqno raises the index's seqno counter to at least n, without
// lowering it if it is already higher. Used when a fresh memory tier
// replaces a frozen one so global seqno ordering survives a commit (spec
// §4.F "seeded with the max(seqno, metadata) observed on disk").
func (ix *Index) SeedSeqno(n uint64) {
	for {
		cur := ix.seqno.Load()
		if cur >= n {
			return
		}

		if ix.seqno.CompareAndSwap(cur, n) {
			return
		}
	}
}

// NextSeqno reserves and returns the next sequence number without mutating
// the tree; used by callers (e.g. the WAL) that must assign a seqno before
// the corresponding write is applied.
func (ix *Index) NextSeqno() uint64 {
	return ix.seqno.Add(1)
}

// Upsert inserts or updates key with value at the given seqno. If seqno is
// zero, Index reserves the next one itself; callers replaying a write-ahead
// log pass the original seqno through to preserve ordering.
func (ix *Index) Upsert(key []byte, value entry.Value, seqno uint64) (*entry.Entry, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if seqno == 0 {
		seqno = ix.seqno.Add(1)
	}

	var result *entry.Entry

	mutate := func(old *entry.Entry) (*entry.Entry, error) {
		if old == nil {
			e, err := entry.NewUpsert(key, value, seqno)
			if err != nil {
				return nil, err
			}

			result = e

			return e, nil
		}

		e, err := old.PrependVersion(value, seqno, ix.lsm)
		if err != nil {
			return nil, err
		}

		result = e

		return e, nil
	}

	newRoot, err := insert(ix.root.Load(), key, mutate)
	if err != nil {
		return nil, err
	}

	newRoot.color = black
	ix.publish(newRoot)

	return result, nil
}

// UpsertCAS behaves like Upsert but first checks that key's current seqno
// equals expected (expected == 0 means "key must not exist yet"). On
// mismatch it returns ErrCASMismatch and leaves the tree untouched.
func (ix *Index) UpsertCAS(key []byte, value entry.Value, expected uint64) (*entry.Entry, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	existing := find(ix.root.Load(), key)

	var currentSeqno uint64
	if existing != nil {
		currentSeqno = existing.entry.Head.Seqno
	}

	if currentSeqno != expected {
		return nil, ErrCASMismatch
	}

	seqno := ix.seqno.Add(1)

	var result *entry.Entry

	mutate := func(old *entry.Entry) (*entry.Entry, error) {
		if old == nil {
			e, err := entry.NewUpsert(key, value, seqno)
			if err != nil {
				return nil, err
			}

			result = e

			return e, nil
		}

		e, err := old.PrependVersion(value, seqno, ix.lsm)
		if err != nil {
			return nil, err
		}

		result = e

		return e, nil
	}

	newRoot, err := insert(ix.root.Load(), key, mutate)
	if err != nil {
		return nil, err
	}

	newRoot.color = black
	ix.publish(newRoot)

	return result, nil
}

// Delete tombstones key at the next reserved seqno. An absent key gets a
// fresh tombstone entry. If key is already a tombstone the delete is a
// no-op: ok is false and no seqno is consumed.
//
// Physical removal of tombstoned nodes never happens here: the disk tier's
// compaction (and a future standalone Purge) is where obsolete versions are
// actually reclaimed, matching how every other tier in this engine treats
// deletes.
func (ix *Index) Delete(key []byte) (*entry.Entry, bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if existing := find(ix.root.Load(), key); existing != nil && existing.entry.Head.Kind == entry.HeadDelete {
		return existing.entry, false, nil
	}

	seqno := ix.seqno.Add(1)

	var (
		result *entry.Entry
		ok     bool
	)

	mutate := func(old *entry.Entry) (*entry.Entry, error) {
		if old == nil {
			e, err := entry.NewDelete(key, seqno)
			if err != nil {
				return nil, err
			}

			result, ok = e, true

			return e, nil
		}

		e, didDelete := old.Delete(seqno, ix.lsm)
		result, ok = e, didDelete

		return e, nil
	}

	newRoot, err := insert(ix.root.Load(), key, mutate)
	if err != nil {
		return nil, false, err
	}

	if !ok {
		return result, false, nil
	}

	newRoot.color = black
	ix.publish(newRoot)

	return result, true, nil
}

// Get looks up key against the current root. Safe to call concurrently
// with writers.
func (ix *Index) Get(key []byte) (*entry.Entry, bool) {
	n := find(ix.root.Load(), key)
	if n == nil {
		return nil, false
	}

	return n.entry, true
}

// Generation returns the number of successful publishes so far. Callers can
// compare two readings to tell whether the index changed between them.
func (ix *Index) Generation() uint64 {
	return ix.generation.Load()
}

// Snapshot pins the current root for stable iteration/point-lookups, immune
// to concurrent Upsert/Delete by construction: those never mutate a node
// already reachable from a published root.
func (ix *Index) Snapshot() *Snapshot {
	return &Snapshot{root: ix.root.Load(), generation: ix.generation.Load()}
}

func (ix *Index) publish(newRoot *node) {
	ix.root.Store(newRoot)
	ix.generation.Add(1)
}

// Snapshot is a stable, point-in-time view of an Index.
type Snapshot struct {
	root       *node
	generation uint64
}

// Generation returns the Index.Generation value at the time the snapshot
// was taken.
func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// Get looks up key within the pinned snapshot.
func (s *Snapshot) Get(key []byte) (*entry.Entry, bool) {
	n := find(s.root, key)
	if n == nil {
		return nil, false
	}

	return n.entry, true
}

// Scan returns a pull iterator over every entry in the snapshot in
// ascending key order, structurally compatible with robt.NextFunc so a
// Snapshot can feed robt.Build/robt.Compact directly.
func (s *Snapshot) Scan() func() (*entry.Entry, bool, error) {
	stack := make([]*node, 0, 32)
	cur := s.root

	push := func(n *node) {
		for n != nil {
			stack = append(stack, n)
			n = n.left
		}
	}

	push(cur)

	return func() (*entry.Entry, bool, error) {
		if len(stack) == 0 {
			return nil, false, nil
		}

		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		push(n.right)

		return n.entry, true, nil
	}
}

// Range walks the snapshot in ascending key order, calling fn for each
// entry until fn returns false or the tree is exhausted.
func (s *Snapshot) Range(fn func(e *entry.Entry) bool) {
	var walk func(n *node) bool

	walk = func(n *node) bool {
		if n == nil {
			return true
		}

		if !walk(n.left) {
			return false
		}

		if !fn(n.entry) {
			return false
		}

		return walk(n.right)
	}

	walk(s.root)
}

// Reverse walks the snapshot in descending key order, calling fn for each
// entry until fn returns false or the tree is exhausted.
func (s *Snapshot) Reverse(fn func(e *entry.Entry) bool) {
	var walk func(n *node) bool

	walk = func(n *node) bool {
		if n == nil {
			return true
		}

		if !walk(n.right) {
			return false
		}

		if !fn(n.entry) {
			return false
		}

		return walk(n.left)
	}

	walk(s.root)
}

// Versions returns the full historical version chain for key, newest
// first, reconstructed by merging deltas via entry.Versions. ok is false
// if the key is absent from the snapshot.
func (s *Snapshot) Versions(key []byte, dec entry.Decoder) ([]entry.Version, bool, error) {
	n := find(s.root, key)
	if n == nil {
		return nil, false, nil
	}

	versions, err := n.entry.Versions(dec)
	if err != nil {
		return nil, false, err
	}

	return versions, true, nil
}
