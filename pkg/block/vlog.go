package block

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Value-log records hold payloads too large (or, per config, simply
// unconditional) to inline in a Z-block entry. Record layout:
//
//	[ length u64 | payload[length] ]
const vlogRecordHeaderSize = 8

// VlogWriter appends length-prefixed records to a value-log file, tracking
// the write cursor so callers can record each record's starting fpos.
type VlogWriter struct {
	w      io.Writer
	offset uint64
}

// NewVlogWriter wraps w, whose write cursor is already positioned at
// startOffset bytes into the underlying file (0 for a brand-new file).
func NewVlogWriter(w io.Writer, startOffset uint64) *VlogWriter {
	return &VlogWriter{w: w, offset: startOffset}
}

// Append writes one record and returns its fpos (the byte offset of the
// record's length prefix) and length.
func (vw *VlogWriter) Append(payload []byte) (fpos uint64, length uint64, err error) {
	var hdr [vlogRecordHeaderSize]byte

	binary.LittleEndian.PutUint64(hdr[:], uint64(len(payload)))

	fpos = vw.offset

	if _, err := vw.w.Write(hdr[:]); err != nil {
		return 0, 0, fmt.Errorf("block: vlog append header: %w", err)
	}

	if len(payload) > 0 {
		if _, err := vw.w.Write(payload); err != nil {
			return 0, 0, fmt.Errorf("block: vlog append payload: %w", err)
		}
	}

	vw.offset += vlogRecordHeaderSize + uint64(len(payload))

	return fpos, uint64(len(payload)), nil
}

// Offset reports the current write cursor.
func (vw *VlogWriter) Offset() uint64 { return vw.offset }

// VlogReader resolves value-log fpos references against a random-access
// value-log file.
type VlogReader struct {
	r io.ReaderAt
}

// NewVlogReader wraps r for random-access record reads.
func NewVlogReader(r io.ReaderAt) *VlogReader {
	return &VlogReader{r: r}
}

// ReadAt reads the record at fpos. length, from the owning Z-entry, is used
// only to size-check the decoded record; the record's own length prefix is
// authoritative.
func (vr *VlogReader) ReadAt(fpos uint64, length uint64) ([]byte, error) {
	var hdr [vlogRecordHeaderSize]byte

	if _, err := vr.r.ReadAt(hdr[:], int64(fpos)); err != nil {
		return nil, fmt.Errorf("block: vlog read header at %d: %w", fpos, err)
	}

	recLen := binary.LittleEndian.Uint64(hdr[:])
	if recLen != length {
		return nil, fmt.Errorf("%w: vlog record at %d has length %d, index expected %d",
			ErrCorrupt, fpos, recLen, length)
	}

	payload := make([]byte, recLen)
	if recLen > 0 {
		if _, err := vr.r.ReadAt(payload, int64(fpos)+vlogRecordHeaderSize); err != nil {
			return nil, fmt.Errorf("block: vlog read payload at %d: %w", fpos, err)
		}
	}

	return payload, nil
}
