package dgm

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	natomic "github.com/natefinch/atomic"
)

// manifest is the root manifest's TOML shape.
// BurntSushi/toml is the ecosystem-standard TOML codec; no pack repo
// carries a TOML dependency of its own, so this is named in DESIGN.md as
// an out-of-pack addition rather than grounded in a specific example.
type manifest struct {
	Version            int     `toml:"version"`
	NumLevels          int     `toml:"num_levels"`
	Lsm                bool    `toml:"lsm"`
	MemRatio           float64 `toml:"mem_ratio"`
	DiskRatio          float64 `toml:"disk_ratio"`
	LsmCutoffSeqno     uint64  `toml:"lsm_cutoff_seqno"`
	TombCutoffSeqno    uint64  `toml:"tombstone_cutoff_seqno"`
	NextDeepIsTomb     bool    `toml:"next_deep_is_tombstone"`
	ConsecutiveCompact int     `toml:"consecutive_compact"`
}

func manifestPath(dir, name, kind string, version int) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s-%d.root", name, kind, version))
}

// findLatestManifest scans dir for the highest-versioned root manifest
// matching name/kind: readers on startup take the highest version number
// they find.
func findLatestManifest(dir, name, kind string) (int, manifest, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, manifest{}, false, nil
		}

		return 0, manifest{}, false, fmt.Errorf("dgm: list manifests: %w", err)
	}

	prefix := fmt.Sprintf("%s-%s-", name, kind)

	var best = -1

	for _, de := range entries {
		n := de.Name()
		if !strings.HasPrefix(n, prefix) || !strings.HasSuffix(n, ".root") {
			continue
		}

		versionStr := strings.TrimSuffix(strings.TrimPrefix(n, prefix), ".root")

		v, err := strconv.Atoi(versionStr)
		if err != nil {
			continue
		}

		if v > best {
			best = v
		}
	}

	if best == -1 {
		return 0, manifest{}, false, nil
	}

	m, err := readManifest(manifestPath(dir, name, kind, best))
	if err != nil {
		return 0, manifest{}, false, err
	}

	return best, m, true, nil
}

func readManifest(path string) (manifest, error) {
	var m manifest

	if _, err := toml.DecodeFile(path, &m); err != nil {
		return manifest{}, fmt.Errorf("%w: %s: %w", ErrManifestCorrupt, path, err)
	}

	return m, nil
}

// rotateManifest writes version+1 then unlinks version. natefinch/atomic's WriteFile
// gives the small manifest file rename-based atomicity without going
// through pkg/fs.AtomicWriter's heavier dir-fsync machinery, which this
// engine uses for the bulkier index and value-log files.
func rotateManifest(dir, name, kind string, oldVersion int, m manifest) (int, error) {
	newVersion := oldVersion + 1
	m.Version = newVersion

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return 0, fmt.Errorf("dgm: encode manifest: %w", err)
	}

	newPath := manifestPath(dir, name, kind, newVersion)

	if err := natomic.WriteFile(newPath, bytes.NewReader(buf.Bytes())); err != nil {
		return 0, fmt.Errorf("dgm: write manifest %q: %w", newPath, err)
	}

	if oldVersion > 0 {
		oldPath := manifestPath(dir, name, kind, oldVersion)
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			return 0, fmt.Errorf("dgm: unlink old manifest %q: %w", oldPath, err)
		}
	}

	return newVersion, nil
}
