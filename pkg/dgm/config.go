package dgm

import (
	"time"

	"github.com/calvinalkan/dgmkv/pkg/entry"
	"github.com/calvinalkan/dgmkv/pkg/robt"
)

// DefaultNumLevels is the default fixed disk-tier array capacity.
const DefaultNumLevels = 16

// Config parameterizes one Index.
type Config struct {
	Dir  string
	Name string
	Kind string // root manifest / disk file family, e.g. "backup"

	// Levels is the fixed disk-tier array capacity.
	Levels int

	Lsm bool

	// MemRatio gates commit-level choice: a candidate disk slot i is
	// acceptable if mf/footprint(disks[i+1]) < MemRatio, where mf is m1's
	// footprint.
	MemRatio float64

	// DiskRatio gates compact-target choice: a target slot is acceptable
	// once sum(sources)/footprint(target) > DiskRatio.
	DiskRatio float64

	// M0Limit is the entry-count threshold past which auto-commit fires.
	M0Limit int

	// CompactThreshold is the consecutive-compact counter floor below which
	// a lone active slot is left alone rather than compacted into itself.
	CompactThreshold int

	// AutoCommitInterval/AutoCompactInterval, when non-zero, start the
	// corresponding background task.
	AutoCommitInterval  time.Duration
	AutoCompactInterval time.Duration

	Disk robt.Config // per-level disk index block sizing, etc.

	// Decoder reconstructs values from disk during Get/Compact merges.
	Decoder entry.Decoder
}

// DefaultConfig returns a Config with LSM mode on, 16 levels, and
// background tasks disabled (callers opt in explicitly).
func DefaultConfig(dir, name string) Config {
	return Config{
		Dir:              dir,
		Name:             name,
		Kind:             "backup",
		Levels:           DefaultNumLevels,
		Lsm:              true,
		MemRatio:         0.5,
		DiskRatio:        0.5,
		M0Limit:          1_000_000,
		CompactThreshold: 1,
		Disk:             robt.DefaultConfig(dir, name),
	}
}
