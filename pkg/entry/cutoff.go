package entry

// BoundKind discriminates whether a seqno Bound is absent, inclusive, or
// exclusive. Mirrors the root manifest's lsm_cutoff/tombstone_cutoff
// kind enum: kind ∈ {"none", "included", "excluded"}.
type BoundKind uint8

const (
	// BoundNone means the bound does not apply.
	BoundNone BoundKind = iota
	// BoundIncluded means seqnos <= Seqno satisfy the bound.
	BoundIncluded
	// BoundExcluded means seqnos < Seqno satisfy the bound.
	BoundExcluded
)

// Bound is a single seqno boundary with inclusive/exclusive semantics.
type Bound struct {
	Kind  BoundKind
	Seqno uint64
}

// Satisfies reports whether seqno falls at-or-below (or strictly below) the
// bound, per Kind. A BoundNone bound never satisfies.
func (b Bound) Satisfies(seqno uint64) bool {
	switch b.Kind {
	case BoundIncluded:
		return seqno <= b.Seqno
	case BoundExcluded:
		return seqno < b.Seqno
	default:
		return false
	}
}

// Cutoff is a compaction directive bounding which old versions/tombstones
// survive. Exactly one of Mono, Lsm, or Tombstone is meaningful for a given
// Cutoff value; Cutoffs are monotone - callers should never apply a Cutoff
// whose bound is looser than one already applied to the same index.
type Cutoff struct {
	// Mono drops all tombstones and deltas (non-LSM mode).
	Mono bool
	// Lsm drops all versions with seqno satisfying the bound.
	Lsm Bound
	// Tombstone drops deleted entries whose head seqno satisfies the bound.
	Tombstone Bound
}

// NoCutoff applies no purging at all.
var NoCutoff = Cutoff{}

// MonoCutoff drops all historical versions and tombstones.
func MonoCutoff() Cutoff { return Cutoff{Mono: true} }

// LsmCutoff drops all versions at or below bound (inclusive).
func LsmCutoff(bound uint64) Cutoff {
	return Cutoff{Lsm: Bound{Kind: BoundIncluded, Seqno: bound}}
}

// TombstoneCutoff drops deleted entries whose head seqno is at or below
// bound (inclusive).
func TombstoneCutoff(bound uint64) Cutoff {
	return Cutoff{Tombstone: Bound{Kind: BoundIncluded, Seqno: bound}}
}
