package robt_test

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/dgmkv/pkg/entry"
	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
	"github.com/calvinalkan/dgmkv/pkg/robt"
)

func sliceSource(entries []*entry.Entry) robt.NextFunc {
	i := 0

	return func() (*entry.Entry, bool, error) {
		if i >= len(entries) {
			return nil, false, nil
		}

		e := entries[i]
		i++

		return e, true, nil
	}
}

func buildEntries(t *testing.T, n int) []*entry.Entry {
	t.Helper()

	out := make([]*entry.Entry, n)

	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%05d", i))
		e, err := entry.NewUpsert(key, entry.I64(i), uint64(i+1))
		require.NoError(t, err)
		out[i] = e
	}

	return out
}

func TestBuildAndGetRoundTrip(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	entries := buildEntries(t, 500)

	cfg := robt.DefaultConfig(dir, "shard0")
	cfg.ZBlockSize = 256 // small blocks to force multi-level trees
	cfg.MBlockSize = 256

	stats, err := robt.Build(fsys, cfg, sliceSource(entries))
	require.NoError(t, err)
	require.Equal(t, 500, stats.NEntries)
	require.False(t, stats.Empty)

	r, err := robt.Open(fsys, cfg)
	require.NoError(t, err)
	defer r.Close()

	for i, want := range entries {
		got, ok, err := r.Get(want.Key, entry.DecodeI64)
		require.NoError(t, err)
		require.True(t, ok, "key %d missing", i)
		require.Equal(t, want.Head.Value, got.Head.Value)
		require.Equal(t, want.Head.Seqno, got.Head.Seqno)
	}

	_, ok, err := r.Get([]byte("does-not-exist"), entry.DecodeI64)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBuildEmptyIndex(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := robt.DefaultConfig(dir, "empty")

	stats, err := robt.Build(fsys, cfg, sliceSource(nil))
	require.NoError(t, err)
	require.True(t, stats.Empty)
	require.Equal(t, 0, stats.NEntries)

	r, err := robt.Open(fsys, cfg)
	require.NoError(t, err)

	_, ok, err := r.Get([]byte("anything"), entry.DecodeI64)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBuildSingleEntryCollapsesRootToZBlock(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := robt.DefaultConfig(dir, "single")

	e, err := entry.NewUpsert([]byte("only"), entry.I64(1), 1)
	require.NoError(t, err)

	stats, err := robt.Build(fsys, cfg, sliceSource([]*entry.Entry{e}))
	require.NoError(t, err)
	require.True(t, stats.RootIsZ, "a single-entry index should not need an m-block root")
}

func TestValueInVlog(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := robt.DefaultConfig(dir, "vlog")
	cfg.ValueInVlog = true

	entries := buildEntries(t, 50)

	_, err := robt.Build(fsys, cfg, sliceSource(entries))
	require.NoError(t, err)

	r, err := robt.Open(fsys, cfg)
	require.NoError(t, err)

	got, ok, err := r.Get(entries[10].Key, entry.DecodeI64)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entries[10].Head.Value, got.Head.Value)
}

func TestScanYieldsKeysInOrder(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := robt.DefaultConfig(dir, "scan")
	cfg.ZBlockSize = 256
	cfg.MBlockSize = 256

	entries := buildEntries(t, 300)

	_, err := robt.Build(fsys, cfg, sliceSource(entries))
	require.NoError(t, err)

	r, err := robt.Open(fsys, cfg)
	require.NoError(t, err)

	next, err := r.Scan(entry.DecodeI64)
	require.NoError(t, err)

	var gotKeys []string

	for {
		e, ok, err := next()
		require.NoError(t, err)

		if !ok {
			break
		}

		gotKeys = append(gotKeys, string(e.Key))
	}

	require.True(t, sort.StringsAreSorted(gotKeys))
	require.Len(t, gotKeys, 300)
}

func TestBloomFilterIsBuiltAndConsultedOnGet(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := robt.DefaultConfig(dir, "bloomed")
	require.True(t, cfg.Bloom, "DefaultConfig should enable the presence filter")

	entries := buildEntries(t, 200)

	stats, err := robt.Build(fsys, cfg, sliceSource(entries))
	require.NoError(t, err)
	require.Greater(t, stats.BloomLen, uint64(0), "a built index should carry a filter blob")

	r, err := robt.Open(fsys, cfg)
	require.NoError(t, err)

	for _, e := range entries {
		_, ok, err := r.Get(e.Key, entry.DecodeI64)
		require.NoError(t, err)
		require.True(t, ok)
	}

	_, ok, err := r.Get([]byte("definitely-not-present"), entry.DecodeI64)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBloomDisabledLeavesIndexReadable(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := robt.DefaultConfig(dir, "nobloom")
	cfg.Bloom = false

	entries := buildEntries(t, 50)

	stats, err := robt.Build(fsys, cfg, sliceSource(entries))
	require.NoError(t, err)
	require.Zero(t, stats.BloomLen, "no filter should be written when Bloom is false")

	r, err := robt.Open(fsys, cfg)
	require.NoError(t, err)

	got, ok, err := r.Get(entries[0].Key, entry.DecodeI64)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entries[0].Head.Value, got.Head.Value)
}

func TestCompactAppliesTombstonePurge(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := robt.DefaultConfig(dir, "src")

	live, err := entry.NewUpsert([]byte("live"), entry.I64(1), 10)
	require.NoError(t, err)

	dead, err := entry.NewDelete([]byte("dead"), 5)
	require.NoError(t, err)

	_, err = robt.Build(fsys, cfg, sliceSource([]*entry.Entry{dead, live}))
	require.NoError(t, err)

	src, err := robt.Open(fsys, cfg)
	require.NoError(t, err)

	dstCfg := robt.DefaultConfig(dir, "dst")
	dstCfg.TombstonePurge = entry.TombstoneCutoff(8)

	stats, err := robt.Compact(fsys, dstCfg, src, entry.DecodeI64)
	require.NoError(t, err)
	require.Equal(t, 1, stats.NEntries, "the tombstone at seqno 5 should be purged by the seqno-8 cutoff")

	dst, err := robt.Open(fsys, dstCfg)
	require.NoError(t, err)

	_, ok, err := dst.Get([]byte("dead"), entry.DecodeI64)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = dst.Get([]byte("live"), entry.DecodeI64)
	require.NoError(t, err)
	require.True(t, ok)
}
