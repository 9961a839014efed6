package block

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// M-blocks are the disk index's intermediate blocks: each entry routes to a
// child block by file offset, keyed by the child's first key.
// Layout mirrors the Z-block outer shape:
//
//	[ numEntries u32 | offset_0 u32 ... offset_{n-1} u32 ]
//	[ entry_0 | entry_1 | ... ]
//	[ zero padding ]
//	[ crc32c(data[:len-8]) u32 | reserved u32 ]
//
// entry:
//
//	flags(4):klen(60) u64   -- bit60 set means child_fpos points at a Z-block
//	child_fpos u64
//	key[klen]
const mEntryFixedSize = 8 + 8 // flags:klen, child_fpos

// MEntry is one routing entry in an M-block.
type MEntry struct {
	Key       []byte
	ChildFpos uint64
	ChildIsZ  bool // true: child_fpos names a Z-block; false: another M-block
}

func mEntrySize(e MEntry) int {
	return mEntryFixedSize + len(e.Key)
}

func encodeMEntry(e MEntry) []byte {
	buf := make([]byte, 0, mEntrySize(e))

	var tmp [8]byte

	flagsKlen := uint64(len(e.Key)) & lenMask60
	if e.ChildIsZ {
		flagsKlen |= flagZChild
	}

	binary.LittleEndian.PutUint64(tmp[:8], flagsKlen)
	buf = append(buf, tmp[:8]...)
	binary.LittleEndian.PutUint64(tmp[:8], e.ChildFpos)
	buf = append(buf, tmp[:8]...)
	buf = append(buf, e.Key...)

	return buf
}

const flagZChild = uint64(1) << 60

// MBuilder accumulates routing entries, in ascending key order, into one
// fixed-size M-block.
type MBuilder struct {
	blockSize int
	entries   [][]byte
	total     int
}

// NewMBuilder returns a builder targeting blocks of exactly blockSize bytes.
func NewMBuilder(blockSize int) *MBuilder {
	return &MBuilder{blockSize: blockSize, total: 4 + blockTrailerSize}
}

// Add appends e to the block, returning an *Overflow if it would not fit.
func (b *MBuilder) Add(e MEntry) error {
	encoded := encodeMEntry(e)
	grow := 4 + len(encoded)

	if b.total+grow > b.blockSize {
		return &Overflow{Needed: b.total + grow - b.blockSize}
	}

	b.entries = append(b.entries, encoded)
	b.total += grow

	return nil
}

// Len reports the number of entries added so far.
func (b *MBuilder) Len() int { return len(b.entries) }

// Empty reports whether no entries have been added.
func (b *MBuilder) Empty() bool { return len(b.entries) == 0 }

// Finalize assembles the block. The returned slice is exactly blockSize
// bytes.
func (b *MBuilder) Finalize() []byte {
	out := make([]byte, b.blockSize)

	binary.LittleEndian.PutUint32(out[0:4], uint32(len(b.entries)))

	cursor := 4 + 4*len(b.entries)

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
func (b *MBuilder) Reset() {
	b.entries = b.entries[:0]
	b.total = 4 + blockTrailerSize
}

// MBlock is a parsed, read-only view over one M-block's bytes.
type MBlock struct {
	data    []byte
	offsets []uint32
}

// ParseMBlock validates the trailing checksum and reads the offset table.
func ParseMBlock(data []byte) (*MBlock, error) {
	if len(data) < 4+blockTrailerSize {
		return nil, fmt.Errorf("%w: m-block too small (%d bytes)", ErrCorrupt, len(data))
	}

	gotCRC := binary.LittleEndian.Uint32(data[len(data)-8 : len(data)-4])
	wantCRC := crc32.Checksum(data[:len(data)-blockTrailerSize], crcTable)

	if gotCRC != wantCRC {
		return nil, fmt.Errorf("%w: m-block checksum mismatch", ErrCorrupt)
	}

	n := binary.LittleEndian.Uint32(data[0:4])
	offsetTableEnd := 4 + 4*int(n)

	if offsetTableEnd > len(data)-blockTrailerSize {
		return nil, fmt.Errorf("%w: m-block offset table overruns block", ErrCorrupt)
	}

	offsets := make([]uint32, n)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(data[4+4*i : 8+4*i])
	}

	return &MBlock{data: data, offsets: offsets}, nil
}

// Len reports the number of entries in the block.
func (m *MBlock) Len() int { return len(m.offsets) }

// EntryAt decodes the i'th entry.
func (m *MBlock) EntryAt(i int) (MEntry, error) {
	if i < 0 || i >= len(m.offsets) {
		return MEntry{}, fmt.Errorf("%w: m-block entry %d", ErrBadIndex, i)
	}

	off := int(m.offsets[i])
	buf := m.data

	if off+mEntryFixedSize > len(buf) {
		return MEntry{}, fmt.Errorf("%w: m-block entry %d header truncated", ErrCorrupt, i)
	}

	flagsKlen := binary.LittleEndian.Uint64(buf[off : off+8])
	childIsZ := flagsKlen&flagZChild != 0
	klen := int(flagsKlen & lenMask60)
	childFpos := binary.LittleEndian.Uint64(buf[off+8 : off+16])

	cursor := off + mEntryFixedSize
	if cursor+klen > len(buf) {
		return MEntry{}, fmt.Errorf("%w: m-block entry %d key truncated", ErrCorrupt, i)
	}

	return MEntry{Key: buf[cursor : cursor+klen], ChildFpos: childFpos, ChildIsZ: childIsZ}, nil
}

// Lookup returns the entry to descend into for key: the last entry whose key
// is <= the search key (successor-then-descend). Returns
// ErrBadIndex if key is smaller than every entry in the block (should not
// happen for a well-formed tree root search starting above the smallest
// key).
func (m *MBlock) Lookup(key []byte, cmp func(a, b []byte) int) (MEntry, error) {
	lo, hi := 0, m.Len()

	for lo < hi {
		mid := (lo + hi) / 2

		e, err := m.EntryAt(mid)
		if err != nil {
			return MEntry{}, err
		}

		if cmp(e.Key, key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	if lo == 0 {
		return MEntry{}, fmt.Errorf("%w: m-block: key precedes every entry", ErrBadIndex)
	}

	return m.EntryAt(lo - 1)
}
