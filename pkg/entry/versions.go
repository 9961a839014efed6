package entry

import "fmt"

// Version is one historical state of a key: either a live value or a
// tombstone, as of Seqno.
type Version struct {
	Seqno   uint64
	Deleted bool
	Value   Value // nil when Deleted
}

// Versions returns the entry's full history, newest first: the head,
// followed by one reconstructed version per delta. It is finite and
// non-restartable - callers that need the list more than once should keep
// the returned slice.
//
// Reconstruction works backward from the head: given head value v_n,
// successive deltas yield v_{n-1} = v_n.Merge(d). The one wrinkle is deletes: a delta
// immediately following (i.e. logically older than) a tombstone has no
// newer value to diff against, so its Diff bytes are the older value's full
// encoding and are decoded directly via dec rather than merged.
func (e *Entry) Versions(dec Decoder) ([]Version, error) {
	out := make([]Version, 0, 1+len(e.Deltas))

	cur := Version{Seqno: e.Head.Seqno, Deleted: e.Head.Kind == HeadDelete, Value: e.Head.Value}
	out = append(out, cur)

	for _, d := range e.Deltas {
		var next Version

		switch {
		case d.Kind == DeltaDelete:
			next = Version{Seqno: d.Seqno, Deleted: true}
		case cur.Deleted || cur.Value == nil:
			v, err := dec(d.Diff)
			if err != nil {
				return nil, fmt.Errorf("entry: decode delta at seqno %d: %w", d.Seqno, err)
			}

			next = Version{Seqno: d.Seqno, Value: v}
		default:
			v, err := cur.Value.Merge(d.Diff)
			if err != nil {
				return nil, fmt.Errorf("entry: merge delta at seqno %d: %w", d.Seqno, err)
			}

			next = Version{Seqno: d.Seqno, Value: v}
		}

		out = append(out, next)
		cur = next
	}

	return out, nil
}

// PurgeOutcome reports the result of PurgeBefore.
type PurgeOutcome uint8

const (
	// PurgeKept means e (possibly with fewer deltas) survives.
	PurgeKept PurgeOutcome = iota
	// PurgeWhole means the entire entry is below the cutoff and the caller
	// should delete it outright.
	PurgeWhole
)

// PurgeBefore drops deltas (and possibly the whole entry) according to
// cutoff.
func (e *Entry) PurgeBefore(cutoff Cutoff) (*Entry, PurgeOutcome) {
	switch {
	case cutoff.Mono:
		if e.Head.Kind == HeadDelete {
			return nil, PurgeWhole
		}

		return &Entry{Key: e.Key, Head: e.Head}, PurgeKept

	case cutoff.Tombstone.Kind != BoundNone:
		if e.Head.Kind == HeadDelete && cutoff.Tombstone.Satisfies(e.Head.Seqno) {
			return nil, PurgeWhole
		}

		return e, PurgeKept

	case cutoff.Lsm.Kind != BoundNone:
		if cutoff.Lsm.Satisfies(e.Head.Seqno) {
			return nil, PurgeWhole
		}

		kept := make([]Delta, 0, len(e.Deltas))

		for _, d := range e.Deltas {
			if cutoff.Lsm.Satisfies(d.Seqno) {
				break // deltas are strictly decreasing; the rest also satisfy
			}

			kept = append(kept, d)
		}

		return &Entry{Key: e.Key, Head: e.Head, Deltas: kept}, PurgeKept

	default:
		return e, PurgeKept
	}
}

// PickWithin produces an entry whose head is the newest version with
// seqno <= hi, and whose delta chain is truncated at lo (versions with
// seqno < lo are dropped). Returns (nil, false, nil) if no version falls
// in [lo, hi].
func (e *Entry) PickWithin(lo, hi uint64, dec Decoder) (*Entry, bool, error) {
	versions, err := e.Versions(dec)
	if err != nil {
		return nil, false, err
	}

	idx := -1

	for i, v := range versions {
		if v.Seqno <= hi {
			idx = i
			break
		}
	}

	if idx == -1 {
		return nil, false, nil
	}

	kept := versions[idx:]
	for i, v := range kept {
		if v.Seqno < lo {
			kept = kept[:i]
			break
		}
	}

	if len(kept) == 0 {
		return nil, false, nil
	}

	out, err := buildFromVersions(e.Key, kept)
	if err != nil {
		return nil, false, err
	}

	return out, true, nil
}

// XMerge merges two entries describing the same key from two tiers,
// preserving all distinct versions in strict seqno order. Seqnos across
// tiers never collide (each mutation consumes a globally unique seqno), so
// there are no ties to break.
func XMerge(a, b *Entry, dec Decoder) (*Entry, error) {
	if a == nil {
		return b, nil
	}

	if b == nil {
		return a, nil
	}

	va, err := a.Versions(dec)
	if err != nil {
		return nil, err
	}

	vb, err := b.Versions(dec)
	if err != nil {
		return nil, err
	}

	merged := make([]Version, 0, len(va)+len(vb))
	i, j := 0, 0

	for i < len(va) && j < len(vb) {
		if va[i].Seqno > vb[j].Seqno {
			merged = append(merged, va[i])
			i++
		} else {
			merged = append(merged, vb[j])
			j++
		}
	}

	merged = append(merged, va[i:]...)
	merged = append(merged, vb[j:]...)

	return buildFromVersions(a.Key, merged)
}

// buildFromVersions re-diffs a newest-first version list back into an
// Entry's head+delta-chain representation.
func buildFromVersions(key []byte, versions []Version) (*Entry, error) {
	if len(versions) == 0 {
		return nil, fmt.Errorf("entry: buildFromVersions: empty version list")
	}

	head := versions[0]

	var newHead Head
	if head.Deleted {
		newHead = Head{Kind: HeadDelete, Seqno: head.Seqno}
	} else {
		newHead = Head{Kind: HeadUpsert, Value: head.Value, Seqno: head.Seqno}
	}

	deltas := make([]Delta, 0, len(versions)-1)
	prev := head

	for _, v := range versions[1:] {
		switch {
		case v.Deleted:
			deltas = append(deltas, Delta{Kind: DeltaDelete, Seqno: v.Seqno})
		case prev.Deleted:
			deltas = append(deltas, Delta{Kind: DeltaUpsert, Diff: v.Value.Bytes(), Seqno: v.Seqno})
		default:
			diff, err := prev.Value.Diff(v.Value)
			if err != nil {
				return nil, fmt.Errorf("entry: re-diff at seqno %d: %w", v.Seqno, err)
			}

			deltas = append(deltas, Delta{Kind: DeltaUpsert, Diff: diff, Seqno: v.Seqno})
		}

		prev = v
	}

	return &Entry{Key: key, Head: newHead, Deltas: deltas}, nil
}
