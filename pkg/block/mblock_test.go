package block_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/dgmkv/pkg/block"
)

func TestMBlockRoundTrip(t *testing.T) {
	b := block.NewMBuilder(4096)

	entries := []block.MEntry{
		{Key: []byte("alpha"), ChildFpos: 4096, ChildIsZ: true},
		{Key: []byte("mike"), ChildFpos: 8192, ChildIsZ: false},
	}

	for _, e := range entries {
		require.NoError(t, b.Add(e))
	}

	data := b.Finalize()
	require.Len(t, data, 4096)

	mb, err := block.ParseMBlock(data)
	require.NoError(t, err)
	require.Equal(t, 2, mb.Len())

	got0, err := mb.EntryAt(0)
	require.NoError(t, err)
	require.Equal(t, "alpha", string(got0.Key))
	require.True(t, got0.ChildIsZ)
	require.EqualValues(t, 4096, got0.ChildFpos)

	got1, err := mb.EntryAt(1)
	require.NoError(t, err)
	require.False(t, got1.ChildIsZ)
}

func TestMBlockLookupSuccessorThenDescend(t *testing.T) {
	b := block.NewMBuilder(4096)

	for _, k := range []string{"b", "d", "f"} {
		require.NoError(t, b.Add(block.MEntry{Key: []byte(k), ChildFpos: 1, ChildIsZ: true}))
	}

	mb, err := block.ParseMBlock(b.Finalize())
	require.NoError(t, err)

	e, err := mb.Lookup([]byte("d"), bytes.Compare)
	require.NoError(t, err)
	require.Equal(t, "d", string(e.Key))

	e, err = mb.Lookup([]byte("e"), bytes.Compare)
	require.NoError(t, err)
	require.Equal(t, "d", string(e.Key), "missing key descends via last entry <= key")

	e, err = mb.Lookup([]byte("z"), bytes.Compare)
	require.NoError(t, err)
	require.Equal(t, "f", string(e.Key))

	_, err = mb.Lookup([]byte("a"), bytes.Compare)
	require.ErrorIs(t, err, block.ErrBadIndex)
}
