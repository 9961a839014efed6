package entry

import "bytes"

// Bytes is an opaque, incompressible payload value. Its diff against an
// older version is simply the older version's full bytes - byte payloads
// have no structure to diff efficiently, so Bytes trades delta-chain space
// for simplicity. Grounded on the source project's type_bytes.rs, which
// makes the same tradeoff.
type Bytes []byte

// Bytes returns the raw payload.
func (b Bytes) Bytes() []byte { return []byte(b) }

// Diff returns old's full bytes; merging that diff against b reconstructs
// old exactly regardless of b's content.
func (b Bytes) Diff(old Value) ([]byte, error) {
	if old == nil {
		return nil, nil
	}

	return bytes.Clone(old.Bytes()), nil
}

// Merge decodes diff as the literal older payload.
func (b Bytes) Merge(diff []byte) (Value, error) {
	return Bytes(bytes.Clone(diff)), nil
}

// DecodeBytes is the Decoder for Bytes values.
func DecodeBytes(payload []byte) (Value, error) {
	return Bytes(bytes.Clone(payload)), nil
}
