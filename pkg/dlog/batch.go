package dlog

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// marker is the fixed trailer constant every committed batch ends with,
// checked during recovery before trusting a footer.
var marker = [8]byte{'d', 'g', 'm', 'k', 'v', 'b', 'a', 't'}

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// OpKind discriminates the two operations a batch entry can carry.
type OpKind uint8

const (
	OpSet OpKind = iota
	OpDelete
)

// Entry is one WAL-logged operation, already assigned its replay index.
type Entry struct {
	Index uint64
	Op    OpKind
	Key   []byte
	Value []byte // nil for OpDelete
}

func encodeEntry(e Entry) []byte {
	buf := make([]byte, 1+8+4+len(e.Key)+4+len(e.Value))
	pos := 0
	buf[pos] = byte(e.Op)
	pos++
	binary.BigEndian.PutUint64(buf[pos:], e.Index)
	pos += 8
	binary.BigEndian.PutUint32(buf[pos:], uint32(len(e.Key)))
	pos += 4
	copy(buf[pos:], e.Key)
	pos += len(e.Key)
	binary.BigEndian.PutUint32(buf[pos:], uint32(len(e.Value)))
	pos += 4
	copy(buf[pos:], e.Value)

	return buf
}

func decodeEntry(buf []byte) (Entry, error) {
	if len(buf) < 1+8+4 {
		return Entry{}, fmt.Errorf("dlog: decode entry: %w", ErrCorrupt)
	}

	var e Entry

	e.Op = OpKind(buf[0])
	pos := 1
	e.Index = binary.BigEndian.Uint64(buf[pos:])
	pos += 8
	klen := int(binary.BigEndian.Uint32(buf[pos:]))
	pos += 4

	if pos+klen+4 > len(buf) {
		return Entry{}, fmt.Errorf("dlog: decode entry key: %w", ErrCorrupt)
	}

	e.Key = append([]byte(nil), buf[pos:pos+klen]...)
	pos += klen
	vlen := int(binary.BigEndian.Uint32(buf[pos:]))
	pos += 4

	if pos+vlen > len(buf) {
		return Entry{}, fmt.Errorf("dlog: decode entry value: %w", ErrCorrupt)
	}

	if vlen > 0 {
		e.Value = append([]byte(nil), buf[pos:pos+vlen]...)
	}

	return e, nil
}

// batch is one atomically-framed group of entries:
// [length|body|crc32|marker|length], where body is
// [term|committed|persisted|first_index|n_entries|config_len|votedfor_len|
// entries…] and every entry carries its own length prefix.
// term/committed/persisted are reserved fields always written as zero, and
// config/votedfor are always zero-length - this engine runs single-node and
// never populates them, but keeping the slots present lets a future
// consensus layer reuse the same journal format.
type batch struct {
	firstIndex uint64
	entries    []Entry
}

// encodeBatch produces the full on-disk representation of b, including
// both bracketing length fields.
func encodeBatch(b batch) []byte {
	body := encodeBatchBody(b)

	crc := crc32.Checksum(body, crcTable)

	total := 8 + len(body) + 4 + 8 + 8
	out := make([]byte, total)

	bodyLen := uint64(len(body))
	binary.BigEndian.PutUint64(out[0:8], bodyLen)
	copy(out[8:8+len(body)], body)

	pos := 8 + len(body)
	binary.BigEndian.PutUint32(out[pos:], crc)
	pos += 4
	copy(out[pos:], marker[:])
	pos += 8
	binary.BigEndian.PutUint64(out[pos:], bodyLen)

	return out
}

func encodeBatchBody(b batch) []byte {
	const reservedFields = 8 * 3 // term, committed, persisted

	size := reservedFields + 8 + 8 + 8 + 8 // first_index, n_entries, config_len, votedfor_len

	entryBufs := make([][]byte, len(b.entries))

	for i, e := range b.entries {
		eb := encodeEntry(e)
		entryBufs[i] = eb
		size += 8 + len(eb)
	}

	buf := make([]byte, size)
	pos := 0

	// term, committed, persisted: reserved, always zero.
	pos += 24

	binary.BigEndian.PutUint64(buf[pos:], b.firstIndex)
	pos += 8
	binary.BigEndian.PutUint64(buf[pos:], uint64(len(b.entries)))
	pos += 8

	// config_len, votedfor_len: reserved, always zero.
	binary.BigEndian.PutUint64(buf[pos:], 0)
	pos += 8
	binary.BigEndian.PutUint64(buf[pos:], 0)
	pos += 8

	for _, eb := range entryBufs {
		binary.BigEndian.PutUint64(buf[pos:], uint64(len(eb)))
		pos += 8
		copy(buf[pos:], eb)
		pos += len(eb)
	}

	return buf
}

// decodeBatch validates bracketing lengths and the CRC, then decodes the
// body. frame is the complete on-disk batch (as produced by encodeBatch).
// consumed reports how many bytes of frame the batch occupied, so the
// caller can continue scanning forward even after a corrupt batch forces
// an early stop elsewhere.
func decodeBatch(frame []byte) (b batch, consumed int, err error) {
	if len(frame) < 8 {
		return batch{}, 0, fmt.Errorf("dlog: decode batch header: %w", ErrCorrupt)
	}

	bodyLen := binary.BigEndian.Uint64(frame[0:8])

	total := 8 + int(bodyLen) + 4 + 8 + 8
	if bodyLen > uint64(len(frame)) || total < 0 || total > len(frame) {
		return batch{}, 0, fmt.Errorf("dlog: decode batch: declared length overruns buffer: %w", ErrCorrupt)
	}

	body := frame[8 : 8+bodyLen]

	pos := 8 + int(bodyLen)
	crc := binary.BigEndian.Uint32(frame[pos:])
	pos += 4

	gotMarker := frame[pos : pos+8]
	pos += 8

	trailerLen := binary.BigEndian.Uint64(frame[pos:])
	pos += 8

	if trailerLen != bodyLen {
		return batch{}, 0, fmt.Errorf("dlog: decode batch: bracketing length mismatch: %w", ErrCorrupt)
	}

	for i := range marker {
		if gotMarker[i] != marker[i] {
			return batch{}, 0, fmt.Errorf("dlog: decode batch: bad marker: %w", ErrCorrupt)
		}
	}

	if crc32.Checksum(body, crcTable) != crc {
		return batch{}, 0, fmt.Errorf("dlog: decode batch: checksum mismatch: %w", ErrCorrupt)
	}

	b, err = decodeBatchBody(body)
	if err != nil {
		return batch{}, 0, err
	}

	return b, pos, nil
}

func decodeBatchBody(body []byte) (batch, error) {
	if len(body) < 24+8+8+8+8 {
		return batch{}, fmt.Errorf("dlog: decode batch body: %w", ErrCorrupt)
	}

	pos := 24 // skip reserved term/committed/persisted

	firstIndex := binary.BigEndian.Uint64(body[pos:])
	pos += 8
	nEntries := binary.BigEndian.Uint64(body[pos:])
	pos += 8

	configLen := binary.BigEndian.Uint64(body[pos:])
	pos += 8
	pos += int(configLen) // reserved, unused

	votedForLen := binary.BigEndian.Uint64(body[pos:])
	pos += 8
	pos += int(votedForLen) // reserved, unused

	entries := make([]Entry, 0, nEntries)

	for i := uint64(0); i < nEntries; i++ {
		if pos+8 > len(body) {
			return batch{}, fmt.Errorf("dlog: decode batch entries: %w", ErrCorrupt)
		}

		elen := binary.BigEndian.Uint64(body[pos:])
		pos += 8

		if pos+int(elen) > len(body) {
			return batch{}, fmt.Errorf("dlog: decode batch entries: %w", ErrCorrupt)
		}

		e, err := decodeEntry(body[pos : pos+int(elen)])
		if err != nil {
			return batch{}, err
		}

		pos += int(elen)
		entries = append(entries, e)
	}

	return batch{firstIndex: firstIndex, entries: entries}, nil
}
