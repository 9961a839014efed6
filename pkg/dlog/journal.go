package dlog

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
)

// journalFile names one shard's journal: {name}-<kind>-shard-{S}-journal-{J}.dlog
func journalFile(dir, name, kind string, shard, seq int) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s-shard-%d-journal-%d.dlog", name, kind, shard, seq))
}

// appendBatch writes one framed batch to f and fsyncs it: the write is not
// acknowledged until the fsync completes.
func appendBatch(f gofs.File, b batch) error {
	frame := encodeBatch(b)

	if _, err := f.Write(frame); err != nil {
		return fmt.Errorf("dlog: append batch: %w", err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("dlog: sync journal: %w", err)
	}

	return nil
}

// readJournalBatches decodes every batch present in a journal file in
// order. It stops cleanly (without error) at the first corrupt or
// truncated batch: a half-written trailing batch is not a fatal error,
// just the end of valid data for that journal.
func readJournalBatches(data []byte) ([]batch, error) {
	var batches []batch

	pos := 0

	for pos < len(data) {
		b, consumed, err := decodeBatch(data[pos:])
		if err != nil {
			if errors.Is(err, ErrCorrupt) {
				break
			}

			return nil, err
		}

		batches = append(batches, b)
		pos += consumed
	}

	return batches, nil
}

func readAll(fsys gofs.FS, path string) ([]byte, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}

		return nil, err
	}

	return data, nil
}

// lastIndex returns the highest entry index recorded across batches, or 0
// if batches is empty.
func lastIndex(batches []batch) uint64 {
	var max uint64

	for _, b := range batches {
		for _, e := range b.entries {
			if e.Index > max {
				max = e.Index
			}
		}
	}

	return max
}
