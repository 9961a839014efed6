package entry

import (
	"encoding/binary"
	"fmt"
)

// I64 is a signed 64-bit integer value whose diff against an older version
// is the additive delta needed to recover that version: if new = c and
// old = p, diff = p - c, so merge computes c + (p - c) = p. Grounded on the
// source project's type_i64.rs. Exercised by compaction and LSM cutoff
// tests, where small, human-checkable integer deltas make expected
// post-compaction values easy to state.
type I64 int64

// Bytes encodes the integer as 8-byte little-endian.
func (v I64) Bytes() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))

	return buf
}

// Diff returns old - v, the delta that recovers old from v.
func (v I64) Diff(old Value) ([]byte, error) {
	if old == nil {
		return nil, nil
	}

	o, ok := old.(I64)
	if !ok {
		return nil, fmt.Errorf("entry: I64.Diff against %T", old)
	}

	delta := int64(o) - int64(v)
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(delta))

	return buf, nil
}

// Merge adds the decoded delta to v, reconstructing the older value.
func (v I64) Merge(diff []byte) (Value, error) {
	if len(diff) != 8 {
		return nil, fmt.Errorf("entry: I64.Merge: want 8 bytes, got %d", len(diff))
	}

	delta := int64(binary.LittleEndian.Uint64(diff))

	return I64(int64(v) + delta), nil
}

// DecodeI64 is the Decoder for I64 values.
func DecodeI64(payload []byte) (Value, error) {
	if len(payload) != 8 {
		return nil, fmt.Errorf("entry: DecodeI64: want 8 bytes, got %d", len(payload))
	}

	return I64(binary.LittleEndian.Uint64(payload)), nil
}
