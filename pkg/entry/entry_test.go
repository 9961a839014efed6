package entry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/dgmkv/pkg/entry"
)

func TestVersionsScenario1(t *testing.T) {
	// insert (k=5,v=10,seq=1),(v=11,seq=2),(v=12,seq=3);
	// get(5) -> Upsert(12,seq=3); versions(5) -> [12@3, 11@2, 10@1].
	e, err := entry.NewUpsert([]byte("5"), entry.I64(10), 1)
	require.NoError(t, err)

	e, err = e.PrependVersion(entry.I64(11), 2, true)
	require.NoError(t, err)

	e, err = e.PrependVersion(entry.I64(12), 3, true)
	require.NoError(t, err)

	require.Equal(t, entry.I64(12), e.Head.Value)
	require.EqualValues(t, 3, e.Head.Seqno)

	versions, err := e.Versions(entry.DecodeI64)
	require.NoError(t, err)
	require.Len(t, versions, 3)

	want := []struct {
		seqno uint64
		val   entry.I64
	}{
		{3, 12}, {2, 11}, {1, 10},
	}

	for i, w := range want {
		require.EqualValues(t, w.seqno, versions[i].Seqno)
		require.False(t, versions[i].Deleted)
		require.Equal(t, w.val, versions[i].Value)
	}
}

func TestDiffMergeLaw(t *testing.T) {
	p := entry.I64(42)
	c := entry.I64(99)

	d, err := c.Diff(p)
	require.NoError(t, err)

	got, err := c.Merge(d)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestDeleteThenUpsertThenVersions(t *testing.T) {
	e, err := entry.NewUpsert([]byte("k"), entry.I64(1), 1)
	require.NoError(t, err)

	e, ok := e.Delete(2, true)
	require.True(t, ok)
	require.Equal(t, entry.HeadDelete, e.Head.Kind)

	// Consecutive deletes collapse into a no-op.
	same, ok := e.Delete(3, true)
	require.False(t, ok)
	require.Same(t, e, same)

	e, err = e.PrependVersion(entry.I64(5), 4, true)
	require.NoError(t, err)

	versions, err := e.Versions(entry.DecodeI64)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	require.EqualValues(t, 4, versions[0].Seqno)
	require.Equal(t, entry.I64(5), versions[0].Value)
	require.EqualValues(t, 2, versions[1].Seqno)
	require.True(t, versions[1].Deleted)
	require.EqualValues(t, 1, versions[2].Seqno)
	require.Equal(t, entry.I64(1), versions[2].Value)
}

func TestPurgeBeforeLsm(t *testing.T) {
	e, err := entry.NewUpsert([]byte("2"), entry.I64(20), 1)
	require.NoError(t, err)

	e, err = e.PrependVersion(entry.I64(30), 2, true)
	require.NoError(t, err)

	e, err = e.PrependVersion(entry.I64(40), 4, true)
	require.NoError(t, err)

	purged, outcome := e.PurgeBefore(entry.LsmCutoff(2))
	require.Equal(t, entry.PurgeKept, outcome)
	require.EqualValues(t, 4, purged.Head.Seqno)
	require.Len(t, purged.Deltas, 0, "deltas at or below cutoff must be dropped")
}

func TestPurgeBeforeMonoDropsDeletes(t *testing.T) {
	e, err := entry.NewDelete([]byte("k"), 1)
	require.NoError(t, err)

	_, outcome := e.PurgeBefore(entry.MonoCutoff())
	require.Equal(t, entry.PurgeWhole, outcome)
}

func TestPickWithin(t *testing.T) {
	e, err := entry.NewUpsert([]byte("k"), entry.I64(1), 1)
	require.NoError(t, err)

	e, err = e.PrependVersion(entry.I64(2), 2, true)
	require.NoError(t, err)

	e, err = e.PrependVersion(entry.I64(3), 3, true)
	require.NoError(t, err)

	picked, ok, err := e.PickWithin(1, 2, entry.DecodeI64)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 2, picked.Head.Seqno)
	require.Equal(t, entry.I64(2), picked.Head.Value)
	require.Len(t, picked.Deltas, 1)
	require.EqualValues(t, 1, picked.Deltas[0].Seqno)

	_, ok, err = e.PickWithin(10, 20, entry.DecodeI64)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestXMerge(t *testing.T) {
	a, err := entry.NewUpsert([]byte("k"), entry.I64(1), 1)
	require.NoError(t, err)

	a, err = a.PrependVersion(entry.I64(3), 3, true)
	require.NoError(t, err)

	b, err := entry.NewUpsert([]byte("k"), entry.I64(2), 2)
	require.NoError(t, err)

	b, err = b.PrependVersion(entry.I64(4), 4, true)
	require.NoError(t, err)

	merged, err := entry.XMerge(a, b, entry.DecodeI64)
	require.NoError(t, err)

	versions, err := merged.Versions(entry.DecodeI64)
	require.NoError(t, err)
	require.Len(t, versions, 4)

	for i, want := range []uint64{4, 3, 2, 1} {
		require.EqualValues(t, want, versions[i].Seqno)

		prevSeqno := versions[0].Seqno
		if i > 0 {
			prevSeqno = versions[i-1].Seqno
		}

		require.LessOrEqual(t, versions[i].Seqno, prevSeqno)
	}
}

func TestKeySizeExceeded(t *testing.T) {
	big := make([]byte, entry.MaxKeySize+1)

	_, err := entry.NewUpsert(big, entry.I64(1), 1)
	require.ErrorIs(t, err, entry.ErrKeySizeExceeded)
}
