package shrobt

import (
	"bytes"
	"fmt"
	"path/filepath"

	json "github.com/goccy/go-json"

	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
)

// manifest records each shard's excluded upper key bound, read from the
// first entry of the *next* shard at build time, with the last shard's
// bound left nil (unbounded).
type manifest struct {
	NumShards int      `json:"num_shards"`
	HighKeys  [][]byte `json:"high_keys"`
}

func manifestPath(dir, name, kind string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s-shrobt.root", name, kind))
}

func readManifest(fsys gofs.FS, path string) (manifest, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return manifest{}, err
	}

	var m manifest

	if err := json.Unmarshal(data, &m); err != nil {
		return manifest{}, fmt.Errorf("%w: %s: %v", ErrManifestCorrupt, path, err)
	}

	return m, nil
}

func writeManifest(fsys gofs.FS, path string, m manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("shrobt: encode manifest: %w", err)
	}

	writer := gofs.NewAtomicWriter(fsys)

	return writer.WriteWithDefaults(path, bytes.NewReader(data))
}
