package fs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calvinalkan/dgmkv/pkg/fs"
)

const testIndexBytes = "index-trailer-bytes"

func TestAtomicWriter_PublishesIndexShard_NoPartialFileVisibleAtFinalPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "0000000001.index")

	writer := fs.NewAtomicWriter(fs.NewReal())

	if err := writer.WriteWithDefaults(path, strings.NewReader(testIndexBytes)); err != nil {
		t.Fatalf("WriteWithDefaults: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != testIndexBytes {
		t.Fatalf("content=%q, want %q", string(got), testIndexBytes)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %q after a successful publish", e.Name())
		}
	}
}

func TestAtomicWriter_Write_RejectsEmptyPath(t *testing.T) {
	t.Parallel()

	writer := fs.NewAtomicWriter(fs.NewReal())

	err := writer.Write("", strings.NewReader(testIndexBytes), fs.AtomicWriteOptions{Perm: 0o644})
	if err == nil {
		t.Fatal("expected an error for an empty path, got nil")
	}
}

func TestAtomicWriter_Write_OverwritesExistingManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "MANIFEST")

	if err := os.WriteFile(path, []byte("stale-manifest"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	writer := fs.NewAtomicWriter(fs.NewReal())

	if err := writer.WriteWithDefaults(path, strings.NewReader("fresh-manifest")); err != nil {
		t.Fatalf("WriteWithDefaults: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != "fresh-manifest" {
		t.Fatalf("content=%q, want %q", string(got), "fresh-manifest")
	}
}
