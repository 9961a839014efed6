package block_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/dgmkv/pkg/block"
)

func TestZBlockRoundTrip(t *testing.T) {
	b := block.NewZBuilder(4096)

	entries := []block.ZEntry{
		{
			Key: []byte("alpha"), Seqno: 3, Upsert: true, Value: []byte("v-alpha"),
			Deltas: []block.ZDelta{{Upsert: true, Diff: []byte("diff-1"), Seqno: 1}},
		},
		{Key: []byte("bravo"), Seqno: 5, Upsert: false},
		{
			Key: []byte("charlie"), Seqno: 9, Upsert: true,
			ValueInVlog: true, VlogFpos: 128, VlogLen: 64,
		},
	}

	for _, e := range entries {
		require.NoError(t, b.Add(e))
	}

	require.Equal(t, 3, b.Len())

	data := b.Finalize()
	require.Len(t, data, 4096)

	zb, err := block.ParseZBlock(data)
	require.NoError(t, err)
	require.Equal(t, 3, zb.Len())

	got0, err := zb.EntryAt(0)
	require.NoError(t, err)
	require.Equal(t, "alpha", string(got0.Key))
	require.True(t, got0.Upsert)
	require.Equal(t, "v-alpha", string(got0.Value))
	require.Len(t, got0.Deltas, 1)
	require.Equal(t, "diff-1", string(got0.Deltas[0].Diff))
	require.EqualValues(t, 1, got0.Deltas[0].Seqno)

	got1, err := zb.EntryAt(1)
	require.NoError(t, err)
	require.False(t, got1.Upsert)
	require.Empty(t, got1.Value)

	got2, err := zb.EntryAt(2)
	require.NoError(t, err)
	require.True(t, got2.ValueInVlog)
	require.EqualValues(t, 128, got2.VlogFpos)
	require.EqualValues(t, 64, got2.VlogLen)
}

func TestZBlockSearch(t *testing.T) {
	b := block.NewZBuilder(4096)

	for _, k := range []string{"a", "c", "e", "g"} {
		require.NoError(t, b.Add(block.ZEntry{Key: []byte(k), Seqno: 1, Upsert: true, Value: []byte("v")}))
	}

	zb, err := block.ParseZBlock(b.Finalize())
	require.NoError(t, err)

	idx, exact, err := zb.Search([]byte("e"), bytes.Compare)
	require.NoError(t, err)
	require.True(t, exact)
	require.Equal(t, 2, idx)

	idx, exact, err = zb.Search([]byte("d"), bytes.Compare)
	require.NoError(t, err)
	require.False(t, exact)
	require.Equal(t, 2, idx) // insertion point before "e"
}

func TestZBlockOverflow(t *testing.T) {
	b := block.NewZBuilder(64)

	err := b.Add(block.ZEntry{
		Key: bytes.Repeat([]byte("k"), 40), Seqno: 1, Upsert: true,
		Value: bytes.Repeat([]byte("v"), 40),
	})

	var overflow *block.Overflow
	require.ErrorAs(t, err, &overflow)
	require.Greater(t, overflow.Needed, 0)
	require.True(t, b.Empty(), "failed Add must not mutate builder state")
}

func TestZBlockChecksumDetectsCorruption(t *testing.T) {
	b := block.NewZBuilder(256)
	require.NoError(t, b.Add(block.ZEntry{Key: []byte("k"), Seqno: 1, Upsert: true, Value: []byte("v")}))

	data := b.Finalize()
	data[10] ^= 0xFF

	_, err := block.ParseZBlock(data)
	require.ErrorIs(t, err, block.ErrCorrupt)
}
