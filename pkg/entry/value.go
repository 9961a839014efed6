package entry

// Value is a versioned payload that knows how to compute and apply binary
// diffs against older versions of itself.
//
// For two values p (older) and c (newer) of the same concrete type:
//
//	d := c.Diff(p)
//	p2, _ := c.Merge(d)
//	// p2 reconstructs p exactly.
//
// This mirrors the source project's Diff trait (associated-type diff/merge)
// without requiring Go generics to thread the diff type through every
// caller: the diff is always a []byte, and it is up to the concrete Value
// implementation to interpret it.
type Value interface {
	// Bytes returns the encoded payload for this value.
	Bytes() []byte

	// Diff returns the bytes needed to reconstruct old from the receiver
	// (the receiver is the newer value).
	Diff(old Value) ([]byte, error)

	// Merge applies a diff produced by the receiver's own Diff against an
	// older value and returns that older value: for d := c.Diff(p),
	// c.Merge(d) reconstructs p. Entry.Versions calls it on each newer
	// value to roll backward through a delta chain.
	Merge(diff []byte) (Value, error)
}

// Decoder reconstructs a concrete Value from encoded bytes. Each Value
// implementation pairs with a Decoder so that block and WAL codecs can
// round-trip arbitrary value types without a registry.
type Decoder func(payload []byte) (Value, error)
