package entry

import "errors"

// Size limits from spec: key <= 1 GiB, value/diff <= 1 TiB.
const (
	MaxKeySize  = 1 << 30
	MaxValSize  = 1 << 40
	maxSeqno    = ^uint64(0)
	headSentry  = maxSeqno
	noSuchSeqno = uint64(0)
)

var (
	// ErrKeySizeExceeded is returned when a key exceeds MaxKeySize.
	ErrKeySizeExceeded = errors.New("entry: key size exceeded")
	// ErrValueSizeExceeded is returned when a value exceeds MaxValSize.
	ErrValueSizeExceeded = errors.New("entry: value size exceeded")
	// ErrDeltaSizeExceeded is returned when a delta diff exceeds MaxValSize.
	ErrDeltaSizeExceeded = errors.New("entry: delta size exceeded")
	// ErrInvalidSeqno is returned when seqnos are not strictly decreasing.
	ErrInvalidSeqno = errors.New("entry: invalid seqno ordering")
)
