package dlog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBatchRoundTrip(t *testing.T) {
	b := batch{
		firstIndex: 5,
		entries: []Entry{
			{Index: 5, Op: OpSet, Key: []byte("a"), Value: []byte("1")},
			{Index: 6, Op: OpDelete, Key: []byte("b")},
		},
	}

	frame := encodeBatch(b)

	got, consumed, err := decodeBatch(frame)
	require.NoError(t, err)
	require.Equal(t, len(frame), consumed)
	require.Equal(t, b.firstIndex, got.firstIndex)
	require.Equal(t, b.entries, got.entries)
}

func TestBatchDetectsCorruption(t *testing.T) {
	b := batch{firstIndex: 1, entries: []Entry{{Index: 1, Op: OpSet, Key: []byte("k"), Value: []byte("v")}}}
	frame := encodeBatch(b)
	frame[len(frame)/2] ^= 0xFF

	_, _, err := decodeBatch(frame)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestReadJournalBatchesStopsAtTruncation(t *testing.T) {
	b1 := batch{firstIndex: 1, entries: []Entry{{Index: 1, Op: OpSet, Key: []byte("a"), Value: []byte("1")}}}
	b2 := batch{firstIndex: 2, entries: []Entry{{Index: 2, Op: OpSet, Key: []byte("b"), Value: []byte("2")}}}

	data := append(encodeBatch(b1), encodeBatch(b2)...)
	truncated := data[:len(data)-5]

	batches, err := readJournalBatches(truncated)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, b1.entries, batches[0].entries)
}
