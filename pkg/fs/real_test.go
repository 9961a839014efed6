package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func Test_RealFS_Exists_Returns_False_When_Shard_File_Does_Not_Exist(t *testing.T) {
	fs := NewReal()
	dir := t.TempDir()

	exists, err := fs.Exists(filepath.Join(dir, "0000000001.index"))

	if got, want := err, error(nil); !errors.Is(got, want) {
		t.Fatalf("err=%v, want=%v", got, want)
	}

	if got, want := exists, false; got != want {
		t.Fatalf("exists=%v, want=%v", got, want)
	}
}

func Test_RealFS_Exists_Returns_True_When_Path_Is_A_Published_Index_File(t *testing.T) {
	fs := NewReal()
	dir := t.TempDir()
	path := filepath.Join(dir, "0000000001.index")

	if err := os.WriteFile(path, []byte("index-bytes"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	exists, err := fs.Exists(path)

	if got, want := err, error(nil); !errors.Is(got, want) {
		t.Fatalf("err=%v, want=%v", got, want)
	}

	if got, want := exists, true; got != want {
		t.Fatalf("exists=%v, want=%v", got, want)
	}
}

func Test_RealFS_Exists_Returns_True_When_Path_Is_A_Shard_Directory(t *testing.T) {
	fs := NewReal()
	dir := t.TempDir()
	shardDir := filepath.Join(dir, "level-0", "shard-3")

	if err := os.MkdirAll(shardDir, 0755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	exists, err := fs.Exists(shardDir)

	if got, want := err, error(nil); !errors.Is(got, want) {
		t.Fatalf("err=%v, want=%v", got, want)
	}

	if got, want := exists, true; got != want {
		t.Fatalf("exists=%v, want=%v", got, want)
	}
}

func Test_RealFS_ReadDir_Lists_Journal_Segments_Sorted_By_Name(t *testing.T) {
	fs := NewReal()
	dir := t.TempDir()

	for _, name := range []string{"0000000003.wal", "0000000001.wal", "0000000002.wal"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	entries, err := fs.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("len(entries)=%d, want 3", len(entries))
	}

	want := []string{"0000000001.wal", "0000000002.wal", "0000000003.wal"}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Fatalf("entries[%d]=%q, want %q", i, e.Name(), want[i])
		}
	}
}
