package dlog_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/dgmkv/pkg/dlog"
	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
)

func TestWriteAndReplay(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := dlog.DefaultConfig(dir, "test")
	cfg.NumShards = 2
	cfg.FlushEntries = 1

	dl, err := dlog.Open(fsys, cfg, nil)
	require.NoError(t, err)

	w, err := dl.Spawn(0)
	require.NoError(t, err)

	idx1, err := w.Set([]byte("a"), []byte("1"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx1)

	idx2, err := w.Delete([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, uint64(2), idx2)

	// Give the writer goroutine a moment to flush past the channel drain.
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, dl.Close())

	var replayed []dlog.Entry

	dl2, err := dlog.Open(fsys, cfg, func(e dlog.Entry) error {
		replayed = append(replayed, e)
		return nil
	})
	require.NoError(t, err)
	defer dl2.Close()

	require.Len(t, replayed, 2)
	require.Equal(t, dlog.OpSet, replayed[0].Op)
	require.Equal(t, []byte("a"), replayed[0].Key)
	require.Equal(t, dlog.OpDelete, replayed[1].Op)
	require.Equal(t, []byte("b"), replayed[1].Key)
}

func TestShardIsStableForSameKey(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := dlog.DefaultConfig(dir, "test")
	dl, err := dlog.Open(fsys, cfg, nil)
	require.NoError(t, err)
	defer dl.Close()

	s1 := dl.Shard([]byte("same-key"))
	s2 := dl.Shard([]byte("same-key"))
	require.Equal(t, s1, s2)
	require.True(t, s1 >= 0 && s1 < cfg.NumShards)
}

func TestPurgeTillKeepsActiveJournal(t *testing.T) {
	fsys := gofs.NewReal()
	dir := t.TempDir()

	cfg := dlog.DefaultConfig(dir, "test")
	cfg.NumShards = 1
	cfg.FlushEntries = 1

	dl, err := dlog.Open(fsys, cfg, nil)
	require.NoError(t, err)
	defer dl.Close()

	w, err := dl.Spawn(0)
	require.NoError(t, err)

	idx, err := w.Set([]byte("a"), []byte("1"))
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, w.PurgeTill(0))
	require.NoError(t, w.PurgeTill(idx+1))

	exists, err := fsys.Exists(filepath.Join(dir, "test-backup-shard-0-journal-0.dlog"))
	require.NoError(t, err)
	require.True(t, exists)
}
