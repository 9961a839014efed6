package block_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/dgmkv/pkg/block"
)

func TestVlogRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	w := block.NewVlogWriter(&buf, 0)

	fpos1, len1, err := w.Append([]byte("hello"))
	require.NoError(t, err)
	require.EqualValues(t, 0, fpos1)
	require.EqualValues(t, 5, len1)

	fpos2, len2, err := w.Append([]byte("a much longer payload here"))
	require.NoError(t, err)
	require.Equal(t, w.Offset(), fpos2+8+len2)

	r := block.NewVlogReader(bytes.NewReader(buf.Bytes()))

	got1, err := r.ReadAt(fpos1, len1)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got1))

	got2, err := r.ReadAt(fpos2, len2)
	require.NoError(t, err)
	require.Equal(t, "a much longer payload here", string(got2))
}

func TestVlogLengthMismatchIsCorrupt(t *testing.T) {
	var buf bytes.Buffer

	w := block.NewVlogWriter(&buf, 0)
	fpos, _, err := w.Append([]byte("hello"))
	require.NoError(t, err)

	r := block.NewVlogReader(bytes.NewReader(buf.Bytes()))

	_, err = r.ReadAt(fpos, 999)
	require.ErrorIs(t, err, block.ErrCorrupt)
}
