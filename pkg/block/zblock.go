package block

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Z-blocks are the disk index's leaf blocks: each entry packs a key's head
// version plus its delta chain. Layout:
//
//	[ numEntries u32 | offset_0 u32 ... offset_{n-1} u32 ]   block header
//	[ entry_0 | entry_1 | ... ]                               entries area
//	[ zero padding ... ]
//	[ crc32c(data[:len-8]) u32 | reserved u32 ]                trailer
//
// Every entry is self-delimiting (its own length fields say exactly how many
// bytes follow), so the offset table only needs start offsets.
//
// entry:
//
//	klen u32
//	ndeltas u32
//	flags(4):vlen(60) u64   -- bit60 = head is upsert, bit61 = value lives in the value-log
//	seqno u64
//	key[klen]
//	value area: vlen bytes inline, or 8-byte value-log fpos if bit61 is set
//	delta_0 .. delta_{ndeltas-1}
//
// delta:
//
//	flags(4):dlen(60) u64   -- bit60 = upsert delta; clear = delete marker (dlen == 0)
//	seqno u64
//	fpos u64                -- byte offset of this delta's payload from the start of the entry
//	payload[dlen]

const (
	flagUpsert = uint64(1) << 60
	flagVlog   = uint64(1) << 61
	lenMask60  = (uint64(1) << 60) - 1

	zEntryFixedSize  = 4 + 4 + 8 + 8 // klen, ndeltas, flags:vlen, seqno
	deltaHeaderSize  = 8 + 8 + 8     // flags:dlen, seqno, fpos
	blockTrailerSize = 8             // crc32c + reserved
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// ZEntry is the builder-facing, decoded shape of one leaf entry.
type ZEntry struct {
	Key    []byte
	Seqno  uint64
	Upsert bool // true: head is a live value; false: head is a tombstone

	Value       []byte // inline head value bytes; nil when Upsert is false or ValueInVlog
	ValueInVlog bool
	VlogFpos    uint64
	VlogLen     uint64 // length of the value-log payload, only meaningful when ValueInVlog

	Deltas []ZDelta
}

// ZDelta is one entry in a Z-entry's delta chain.
type ZDelta struct {
	Upsert bool   // true: diff payload reconstructs an older live value; false: delete marker
	Diff   []byte // nil/empty when Upsert is false
	Seqno  uint64
}

func packFlagsLen(upsert, vlog bool, length uint64) uint64 {
	v := length & lenMask60
	if upsert {
		v |= flagUpsert
	}

	if vlog {
		v |= flagVlog
	}

	return v
}

func unpackFlagsLen(v uint64) (upsert, vlog bool, length uint64) {
	return v&flagUpsert != 0, v&flagVlog != 0, v & lenMask60
}

func zEntrySize(e ZEntry) int {
	size := zEntryFixedSize + len(e.Key)

	if e.ValueInVlog {
		size += 8
	} else {
		size += len(e.Value)
	}

	for _, d := range e.Deltas {
		size += deltaHeaderSize + len(d.Diff)
	}

	return size
}

// ZBuilder accumulates leaf entries, in ascending key order, into one
// fixed-size Z-block.
type ZBuilder struct {
	blockSize int
	entries   [][]byte
	total     int // numEntries(4) + offsets(4*n) + sum(entry lens) + trailer(8)
}

// NewZBuilder returns a builder targeting blocks of exactly blockSize bytes.
func NewZBuilder(blockSize int) *ZBuilder {
	return &ZBuilder{blockSize: blockSize, total: 4 + blockTrailerSize}
}

// Add appends e to the block. It returns an *Overflow (builder state
// unchanged) if e would not fit within the configured block size.
func (b *ZBuilder) Add(e ZEntry) error {
	encoded := encodeZEntry(e)
	grow := 4 + len(encoded) // one more offset-table slot, plus the entry bytes

	if b.total+grow > b.blockSize {
		return &Overflow{Needed: b.total + grow - b.blockSize}
	}

	b.entries = append(b.entries, encoded)
	b.total += grow

	return nil
}

// Len reports the number of entries added so far.
func (b *ZBuilder) Len() int { return len(b.entries) }

// Empty reports whether no entries have been added.
func (b *ZBuilder) Empty() bool { return len(b.entries) == 0 }

// Finalize assembles the block: header, offset table, entries, zero padding,
// and the trailing checksum. The returned slice is exactly blockSize bytes.
func (b *ZBuilder) Finalize() []byte {
	out := make([]byte, b.blockSize)

	binary.LittleEndian.PutUint32(out[0:4], uint32(len(b.entries)))

	offsetTableEnd := 4 + 4*len(b.entries)
	cursor := offsetTableEnd

	for i, enc := range b.entries {
		binary.LittleEndian.PutUint32(out[4+4*i:8+4*i], uint32(cursor))
		copy(out[cursor:], enc)
		cursor += len(enc)
	}

	crc := crc32.Checksum(out[:b.blockSize-blockTrailerSize], crcTable)
	binary.LittleEndian.PutUint32(out[b.blockSize-8:b.blockSize-4], crc)

	return out
}

// Reset clears the builder for reuse.
func (b *ZBuilder) Reset() {
	b.entries = b.entries[:0]
	b.total = 4 + blockTrailerSize
}

func encodeZEntry(e ZEntry) []byte {
	buf := make([]byte, 0, zEntrySize(e))

	var tmp [8]byte

	binary.LittleEndian.PutUint32(tmp[:4], uint32(len(e.Key)))
	buf = append(buf, tmp[:4]...)
	binary.LittleEndian.PutUint32(tmp[:4], uint32(len(e.Deltas)))
	buf = append(buf, tmp[:4]...)

	var vlen uint64
	if e.ValueInVlog {
		vlen = e.VlogLen
	} else {
		vlen = uint64(len(e.Value))
	}

	binary.LittleEndian.PutUint64(tmp[:8], packFlagsLen(e.Upsert, e.ValueInVlog, vlen))
	buf = append(buf, tmp[:8]...)
	binary.LittleEndian.PutUint64(tmp[:8], e.Seqno)
	buf = append(buf, tmp[:8]...)
	buf = append(buf, e.Key...)

	if e.ValueInVlog {
		binary.LittleEndian.PutUint64(tmp[:8], e.VlogFpos)
		buf = append(buf, tmp[:8]...)
	} else {
		buf = append(buf, e.Value...)
	}

	for _, d := range e.Deltas {
		binary.LittleEndian.PutUint64(tmp[:8], packFlagsLen(d.Upsert, false, uint64(len(d.Diff))))
		buf = append(buf, tmp[:8]...)
		binary.LittleEndian.PutUint64(tmp[:8], d.Seqno)
		buf = append(buf, tmp[:8]...)
		fpos := uint64(len(buf)) + 8
		binary.LittleEndian.PutUint64(tmp[:8], fpos)
		buf = append(buf, tmp[:8]...)
		buf = append(buf, d.Diff...)
	}

	return buf
}

// ZBlock is a parsed, read-only view over one Z-block's bytes.
type ZBlock struct {
	data    []byte
	offsets []uint32
}

// ParseZBlock validates the trailing checksum and reads the offset table.
func ParseZBlock(data []byte) (*ZBlock, error) {
	if len(data) < 4+blockTrailerSize {
		return nil, fmt.Errorf("%w: z-block too small (%d bytes)", ErrCorrupt, len(data))
	}

	gotCRC := binary.LittleEndian.Uint32(data[len(data)-8 : len(data)-4])
	wantCRC := crc32.Checksum(data[:len(data)-blockTrailerSize], crcTable)

	if gotCRC != wantCRC {
		return nil, fmt.Errorf("%w: z-block checksum mismatch", ErrCorrupt)
	}

	n := binary.LittleEndian.Uint32(data[0:4])
	offsetTableEnd := 4 + 4*int(n)

	if offsetTableEnd > len(data)-blockTrailerSize {
		return nil, fmt.Errorf("%w: z-block offset table overruns block", ErrCorrupt)
	}

	offsets := make([]uint32, n)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(data[4+4*i : 8+4*i])
	}

	return &ZBlock{data: data, offsets: offsets}, nil
}

// Len reports the number of entries in the block.
func (z *ZBlock) Len() int { return len(z.offsets) }

// Keys decodes and returns every key in the block, in order. Used by the
// M-block builder to pick a separator key for the block above.
func (z *ZBlock) Keys() ([][]byte, error) {
	keys := make([][]byte, z.Len())

	for i := range keys {
		e, err := z.EntryAt(i)
		if err != nil {
			return nil, err
		}

		keys[i] = e.Key
	}

	return keys, nil
}

// EntryAt decodes the i'th entry.
func (z *ZBlock) EntryAt(i int) (ZEntry, error) {
	if i < 0 || i >= len(z.offsets) {
		return ZEntry{}, fmt.Errorf("%w: z-block entry %d", ErrBadIndex, i)
	}

	off := int(z.offsets[i])
	buf := z.data

	if off+zEntryFixedSize > len(buf) {
		return ZEntry{}, fmt.Errorf("%w: z-block entry %d header truncated", ErrCorrupt, i)
	}

	klen := int(binary.LittleEndian.Uint32(buf[off : off+4]))
	ndeltas := int(binary.LittleEndian.Uint32(buf[off+4 : off+8]))
	upsert, vlog, vlen := unpackFlagsLen(binary.LittleEndian.Uint64(buf[off+8 : off+16]))
	seqno := binary.LittleEndian.Uint64(buf[off+16 : off+24])

	cursor := off + zEntryFixedSize
	if cursor+klen > len(buf) {
		return ZEntry{}, fmt.Errorf("%w: z-block entry %d key truncated", ErrCorrupt, i)
	}

	key := buf[cursor : cursor+klen]
	cursor += klen

	e := ZEntry{Key: key, Seqno: seqno, Upsert: upsert}

	if vlog {
		if cursor+8 > len(buf) {
			return ZEntry{}, fmt.Errorf("%w: z-block entry %d vlog fpos truncated", ErrCorrupt, i)
		}

		e.ValueInVlog = true
		e.VlogFpos = binary.LittleEndian.Uint64(buf[cursor : cursor+8])
		e.VlogLen = vlen
		cursor += 8
	} else {
		if cursor+int(vlen) > len(buf) {
			return ZEntry{}, fmt.Errorf("%w: z-block entry %d value truncated", ErrCorrupt, i)
		}

		e.Value = buf[cursor : cursor+int(vlen)]
		cursor += int(vlen)
	}

	if ndeltas > 0 {
		e.Deltas = make([]ZDelta, ndeltas)
	}

	for d := 0; d < ndeltas; d++ {
		if cursor+deltaHeaderSize > len(buf) {
			return ZEntry{}, fmt.Errorf("%w: z-block entry %d delta %d header truncated", ErrCorrupt, i, d)
		}

		dupsert, _, dlen := unpackFlagsLen(binary.LittleEndian.Uint64(buf[cursor : cursor+8]))
		dseqno := binary.LittleEndian.Uint64(buf[cursor+8 : cursor+16])
		// fpos, at cursor+16:cursor+24, is advisory (the payload's offset
		// from the start of the entry in entries we write) and not needed
		// for sequential decode.
		cursor += 24

		if cursor+int(dlen) > len(buf) {
			return ZEntry{}, fmt.Errorf("%w: z-block entry %d delta %d payload truncated", ErrCorrupt, i, d)
		}

		e.Deltas[d] = ZDelta{Upsert: dupsert, Diff: buf[cursor : cursor+int(dlen)], Seqno: dseqno}
		cursor += int(dlen)
	}

	return e, nil
}

// Search locates key using binary search over decoded entries. exact is true
// when an entry with that exact key exists; idx is its position, or the
// position it would be inserted at.
func (z *ZBlock) Search(key []byte, cmp func(a, b []byte) int) (idx int, exact bool, err error) {
	lo, hi := 0, z.Len()

	for lo < hi {
		mid := (lo + hi) / 2

		e, derr := z.EntryAt(mid)
		if derr != nil {
			return 0, false, derr
		}

		c := cmp(e.Key, key)

		switch {
		case c == 0:
			return mid, true, nil
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}

	return lo, false, nil
}
