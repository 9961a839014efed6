package robt

import (
	"path/filepath"

	"github.com/calvinalkan/dgmkv/pkg/entry"
)

// Default block sizes: small, explicit, with an exported Default
// constructor.
const (
	DefaultZBlockSize = 4 * 1024
	DefaultMBlockSize = 4 * 1024
	DefaultVBlockSize = 4 * 1024

	metaBlockSize = 4 * 1024
	markerByte    = 0xAB
)

// Config parameterizes one disk index build.
type Config struct {
	Dir  string
	Name string

	ZBlockSize int
	MBlockSize int
	VBlockSize int

	// DeltaOk persists each entry's delta chain alongside its head. When
	// false, only the head version is written (mono index).
	DeltaOk bool

	// ValueInVlog pushes head values into the value-log file instead of
	// inlining them in the Z-block. Deltas are always inlined - they are
	// already-diffed and typically small.
	ValueInVlog bool

	// VlogFile overrides the derived value-log path. Empty means derive
	// from Dir/Name.
	VlogFile string

	// TombstonePurge, when non-zero, is applied to every entry during
	// Build/Compact before it is written.
	TombstonePurge entry.Cutoff

	// Bloom enables a whole-index presence filter, built during Build and
	// consulted by Get before a Z-block disk read. Absence of the filter
	// (Bloom false, or an older index file built without one) is legal:
	// Get simply always reads the Z-block.
	Bloom bool

	// BloomFPR is the target false-positive rate for the filter. Ignored
	// unless Bloom is true; zero falls back to DefaultBloomFPR.
	BloomFPR float64
}

// DefaultBloomFPR is the false-positive rate used when Config.BloomFPR is
// left at zero with Bloom enabled.
const DefaultBloomFPR = 0.01

// DefaultConfig returns a Config with 4KiB blocks, deltas enabled, values
// inlined, and the presence filter enabled.
func DefaultConfig(dir, name string) Config {
	return Config{
		Dir:         dir,
		Name:        name,
		ZBlockSize:  DefaultZBlockSize,
		MBlockSize:  DefaultMBlockSize,
		VBlockSize:  DefaultVBlockSize,
		DeltaOk:     true,
		ValueInVlog: false,
		Bloom:       true,
		BloomFPR:    DefaultBloomFPR,
	}
}

// IndexFile returns the path of the shard's single index file.
func (c Config) IndexFile() string {
	return filepath.Join(c.Dir, "robt-"+c.Name+".indx")
}

// VlogFilePath returns the path of the shard's value-log file.
func (c Config) VlogFilePath() string {
	if c.VlogFile != "" {
		return c.VlogFile
	}

	return filepath.Join(c.Dir, "robt-"+c.Name+".vlog")
}

// needsVlog reports whether a value-log file is written at all. Deltas are
// always stored inline in the Z-block (see pkg/block), so only head values
// configured for the value-log require the file.
func (c Config) needsVlog() bool {
	return c.ValueInVlog
}
