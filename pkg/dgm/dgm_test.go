package dgm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/dgmkv/pkg/dgm"
	"github.com/calvinalkan/dgmkv/pkg/entry"
	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
)

func testConfig(dir string) dgm.Config {
	cfg := dgm.DefaultConfig(dir, "t")
	cfg.Levels = 4
	cfg.Decoder = entry.DecodeI64
	cfg.Disk.ZBlockSize = 256
	cfg.Disk.MBlockSize = 256

	return cfg
}

func putN(t *testing.T, ix *dgm.Index, from, to int) {
	t.Helper()

	for i := from; i < to; i++ {
		key := []byte{byte(i >> 8), byte(i)}
		_, err := ix.Upsert(key, entry.I64(i))
		require.NoError(t, err)
	}
}

func TestCommitMovesMemEntriesToDisk(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	ix, err := dgm.Open(fsys, testConfig(dir), nil)
	require.NoError(t, err)
	defer ix.Close()

	putN(t, ix, 0, 50)

	require.NoError(t, ix.Commit())

	for i := 0; i < 50; i++ {
		key := []byte{byte(i >> 8), byte(i)}

		e, ok, err := ix.Get(key, entry.DecodeI64)
		require.NoError(t, err)
		require.True(t, ok, "key %d missing after commit", i)
		require.Equal(t, entry.I64(i), e.Head.Value)
	}
}

func TestGetPrefersMemOverDisk(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	ix, err := dgm.Open(fsys, testConfig(dir), nil)
	require.NoError(t, err)
	defer ix.Close()

	key := []byte("k")

	_, err = ix.Upsert(key, entry.I64(1))
	require.NoError(t, err)
	require.NoError(t, ix.Commit())

	_, err = ix.Upsert(key, entry.I64(2))
	require.NoError(t, err)

	e, ok, err := ix.Get(key, entry.DecodeI64)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.I64(2), e.Head.Value)
}

func TestReopenRecoversManifestAndDiskTiers(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := testConfig(dir)

	ix, err := dgm.Open(fsys, cfg, nil)
	require.NoError(t, err)

	putN(t, ix, 0, 20)
	require.NoError(t, ix.Commit())
	require.NoError(t, ix.Close())

	ix2, err := dgm.Open(fsys, cfg, nil)
	require.NoError(t, err)
	defer ix2.Close()

	for i := 0; i < 20; i++ {
		key := []byte{byte(i >> 8), byte(i)}

		_, ok, err := ix2.Get(key, entry.DecodeI64)
		require.NoError(t, err)
		require.True(t, ok, "key %d missing after reopen", i)
	}
}

func TestCompactMergesTwoActiveSlotsIntoDeepest(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := testConfig(dir)
	cfg.MemRatio = 1e9 // always accept the shallowest empty slot

	ix, err := dgm.Open(fsys, cfg, nil)
	require.NoError(t, err)
	defer ix.Close()

	putN(t, ix, 0, 10)
	require.NoError(t, ix.Commit())

	putN(t, ix, 10, 20)
	require.NoError(t, ix.Commit())

	require.NoError(t, ix.Compact())

	for i := 0; i < 20; i++ {
		key := []byte{byte(i >> 8), byte(i)}

		e, ok, err := ix.Get(key, entry.DecodeI64)
		require.NoError(t, err)
		require.True(t, ok, "key %d missing after compact", i)
		require.Equal(t, entry.I64(i), e.Head.Value)
	}
}

func TestCompactWithNoActiveDisksReturnsErrNoCompactionTarget(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	ix, err := dgm.Open(fsys, testConfig(dir), nil)
	require.NoError(t, err)
	defer ix.Close()

	err = ix.Compact()
	require.ErrorIs(t, err, dgm.ErrNoCompactionTarget)
}

func TestDeleteTombstonesSurviveCommit(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	ix, err := dgm.Open(fsys, testConfig(dir), nil)
	require.NoError(t, err)
	defer ix.Close()

	key := []byte("gone")

	_, err = ix.Upsert(key, entry.I64(1))
	require.NoError(t, err)
	require.NoError(t, ix.Commit())

	_, _, err = ix.Delete(key)
	require.NoError(t, err)
	require.NoError(t, ix.Commit())

	e, ok, err := ix.Get(key, entry.DecodeI64)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.HeadDelete, e.Head.Kind)
}

type recordingSink struct {
	commits  int
	compacts int
	rotates  int
	errs     int
}

func (s *recordingSink) OnCommit(int, dgm.CommitStats)           { s.commits++ }
func (s *recordingSink) OnCompact([]int, int, dgm.CompactStats) { s.compacts++ }
func (s *recordingSink) OnRotate(int)                           { s.rotates++ }
func (s *recordingSink) OnError(string, error)                  { s.errs++ }

func TestSinkReceivesCommitAndCompactEvents(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := testConfig(dir)
	cfg.MemRatio = 1e9

	sink := &recordingSink{}

	ix, err := dgm.Open(fsys, cfg, sink)
	require.NoError(t, err)
	defer ix.Close()

	putN(t, ix, 0, 5)
	require.NoError(t, ix.Commit())

	putN(t, ix, 5, 10)
	require.NoError(t, ix.Commit())

	require.NoError(t, ix.Compact())

	require.Equal(t, 2, sink.commits)
	require.Equal(t, 1, sink.compacts)
	require.Equal(t, 3, sink.rotates)
	require.Equal(t, 0, sink.errs)
}
