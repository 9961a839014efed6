package entry

import "fmt"

// HeadKind discriminates the two shapes a value head can take.
type HeadKind uint8

const (
	// HeadUpsert marks a live value.
	HeadUpsert HeadKind = iota
	// HeadDelete marks a tombstone.
	HeadDelete
)

// Head is the newest version of a key: either a live Value or a tombstone.
type Head struct {
	Kind  HeadKind
	Value Value // nil when Kind == HeadDelete
	Seqno uint64
}

// DeltaKind discriminates the two shapes a historical delta can take.
type DeltaKind uint8

const (
	// DeltaUpsert carries a diff (or, immediately after a delete, a full
	// encoded value - see Entry.Versions) needed to reconstruct an older
	// live version.
	DeltaUpsert DeltaKind = iota
	// DeltaDelete marks that an older version of this key was a tombstone.
	DeltaDelete
)

// Delta is one step in a key's delta chain: the information needed to walk
// from the version just newer than it to this older version.
type Delta struct {
	Kind  DeltaKind
	Diff  []byte // nil when Kind == DeltaDelete
	Seqno uint64
}

// Entry binds one key to a value head plus an ordered chain of deltas
// representing older versions, newest first.
//
// Seqnos strictly decrease along Head -> Deltas[0] -> Deltas[1] -> ...
// Entry is immutable by convention: every operation that changes an entry's
// logical value returns a new *Entry rather than mutating the receiver, so
// Entry can be shared freely between MVCC tree generations and disk index
// blocks.
type Entry struct {
	Key    []byte
	Head   Head
	Deltas []Delta
}

// NewUpsert constructs a leaf entry for a brand-new key.
func NewUpsert(key []byte, value Value, seqno uint64) (*Entry, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	if err := checkValue(value); err != nil {
		return nil, err
	}

	return &Entry{
		Key:  key,
		Head: Head{Kind: HeadUpsert, Value: value, Seqno: seqno},
	}, nil
}

// NewDelete constructs a tombstone entry for a brand-new key.
func NewDelete(key []byte, seqno uint64) (*Entry, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	return &Entry{
		Key:  key,
		Head: Head{Kind: HeadDelete, Seqno: seqno},
	}, nil
}

// PrependVersion pushes e's current head onto the delta chain (LSM mode) or
// simply overwrites it (non-LSM mode), then installs value/seqno as the new
// head. In LSM mode, when the current head is an Upsert, the delta records
// value.Diff(currentHead) so the old value can be reconstructed later. When
// the current head is a Delete, the delta records a DeltaDelete marker
// (there is nothing to diff against).
func (e *Entry) PrependVersion(value Value, seqno uint64, lsm bool) (*Entry, error) {
	if err := checkValue(value); err != nil {
		return nil, err
	}

	newHead := Head{Kind: HeadUpsert, Value: value, Seqno: seqno}

	if !lsm {
		return &Entry{Key: e.Key, Head: newHead}, nil
	}

	var delta Delta

	switch e.Head.Kind {
	case HeadUpsert:
		diff, err := value.Diff(e.Head.Value)
		if err != nil {
			return nil, fmt.Errorf("entry: prepend version diff: %w", err)
		}

		if err := checkDelta(diff); err != nil {
			return nil, err
		}

		delta = Delta{Kind: DeltaUpsert, Diff: diff, Seqno: e.Head.Seqno}
	case HeadDelete:
		delta = Delta{Kind: DeltaDelete, Seqno: e.Head.Seqno}
	}

	deltas := make([]Delta, 0, len(e.Deltas)+1)
	deltas = append(deltas, delta)
	deltas = append(deltas, e.Deltas...)

	return &Entry{Key: e.Key, Head: newHead, Deltas: deltas}, nil
}

// Delete converts e's current head into a Delete tombstone at seqno.
// Consecutive deletes are illegal and collapse into a no-op: if e's head is
// already a Delete, Delete returns (e, false) and the caller must not
// consume a seqno for the attempt. Otherwise it returns the new tombstone
// entry and true.
//
// In LSM mode the old Upsert head is preserved by prepending a DeltaUpsert
// carrying its full encoded value (there is no newer value to diff against
// once the head becomes a tombstone).
func (e *Entry) Delete(seqno uint64, lsm bool) (*Entry, bool) {
	if e.Head.Kind == HeadDelete {
		return e, false
	}

	newHead := Head{Kind: HeadDelete, Seqno: seqno}

	if !lsm {
		return &Entry{Key: e.Key, Head: newHead}, true
	}

	delta := Delta{Kind: DeltaUpsert, Diff: e.Head.Value.Bytes(), Seqno: e.Head.Seqno}

	deltas := make([]Delta, 0, len(e.Deltas)+1)
	deltas = append(deltas, delta)
	deltas = append(deltas, e.Deltas...)

	return &Entry{Key: e.Key, Head: newHead, Deltas: deltas}, true
}

func checkKey(key []byte) error {
	if len(key) > MaxKeySize {
		return fmt.Errorf("%w: %d bytes", ErrKeySizeExceeded, len(key))
	}

	return nil
}

func checkValue(value Value) error {
	if value == nil {
		return nil
	}

	if n := len(value.Bytes()); n > MaxValSize {
		return fmt.Errorf("%w: %d bytes", ErrValueSizeExceeded, n)
	}

	return nil
}

func checkDelta(diff []byte) error {
	if len(diff) > MaxValSize {
		return fmt.Errorf("%w: %d bytes", ErrDeltaSizeExceeded, len(diff))
	}

	return nil
}
