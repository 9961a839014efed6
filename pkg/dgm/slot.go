package dgm

import "github.com/calvinalkan/dgmkv/pkg/robt"

// slotState is one tier array slot's lifecycle state.
type slotState uint8

const (
	slotEmpty slotState = iota
	slotActive
	slotCommit
	slotCompact
)

// slot is one entry in the fixed-capacity disk tier array. Slot 0 is
// freshest; slot NLEVELS-1 is oldest.
type slot struct {
	state slotState
	disk  *robt.Reader
	cfg   robt.Config
}

func (s *slot) footprint() int {
	if s.disk == nil {
		return 0
	}

	return s.disk.Stats().NEntries
}
