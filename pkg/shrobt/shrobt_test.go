package shrobt_test

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/dgmkv/pkg/entry"
	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
	"github.com/calvinalkan/dgmkv/pkg/shrobt"
)

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

func sliceSource(entries []*entry.Entry) func() (*entry.Entry, bool, error) {
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

func TestBuildAndGetAcrossShards(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := shrobt.DefaultConfig(dir, "idx")
	cfg.NumShards = 4

	entries := buildEntries(t, 400)

	_, err := shrobt.Build(fsys, cfg, sliceSource(entries))
	require.NoError(t, err)

	r, err := shrobt.Open(fsys, cfg)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 4, r.NumShards())

	for i, want := range entries {
		got, ok, err := r.Get(want.Key, entry.DecodeI64)
		require.NoError(t, err)
		require.True(t, ok, "key %d missing", i)
		require.Equal(t, want.Head.Value, got.Head.Value)
	}

	_, ok, err := r.Get([]byte("does-not-exist"), entry.DecodeI64)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestScanAcrossShardsYieldsSortedKeys(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := shrobt.DefaultConfig(dir, "scan")
	cfg.NumShards = 3

	entries := buildEntries(t, 250)

	_, err := shrobt.Build(fsys, cfg, sliceSource(entries))
	require.NoError(t, err)

	r, err := shrobt.Open(fsys, cfg)
	require.NoError(t, err)
	defer r.Close()

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
	require.Len(t, gotKeys, 250)
}

func TestCompactAppliesCutoffAcrossShards(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := shrobt.DefaultConfig(dir, "c")
	cfg.NumShards = 2

	live, err := entry.NewUpsert([]byte("b-live"), entry.I64(1), 10)
	require.NoError(t, err)

	dead, err := entry.NewDelete([]byte("a-dead"), 5)
	require.NoError(t, err)

	_, err = shrobt.Build(fsys, cfg, sliceSource([]*entry.Entry{dead, live}))
	require.NoError(t, err)

	src, err := shrobt.Open(fsys, cfg)
	require.NoError(t, err)
	defer src.Close()

	_, err = shrobt.Compact(fsys, cfg, src, entry.TombstoneCutoff(8), entry.DecodeI64)
	require.NoError(t, err)

	dst, err := shrobt.Open(fsys, cfg)
	require.NoError(t, err)
	defer dst.Close()

	_, ok, err := dst.Get([]byte("a-dead"), entry.DecodeI64)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = dst.Get([]byte("b-live"), entry.DecodeI64)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBuildWithMoreShardsThanEntries(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := shrobt.DefaultConfig(dir, "sparse")
	cfg.NumShards = 8

	entries := buildEntries(t, 3)

	_, err := shrobt.Build(fsys, cfg, sliceSource(entries))
	require.NoError(t, err)

	r, err := shrobt.Open(fsys, cfg)
	require.NoError(t, err)
	defer r.Close()

	for _, want := range entries {
		_, ok, err := r.Get(want.Key, entry.DecodeI64)
		require.NoError(t, err)
		require.True(t, ok)
	}
}
