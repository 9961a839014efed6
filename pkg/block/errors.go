package block

import (
	"errors"
	"fmt"
)

// ErrCorrupt means a block or value-log record failed its checksum or
// structural sanity checks.
var ErrCorrupt = errors.New("block: corrupt")

// ErrBadIndex means a requested entry index is out of range for the block.
var ErrBadIndex = errors.New("block: index out of range")

// Overflow is returned by a builder's Add when the entry would not fit in
// the remaining block budget. The builder's state is unchanged on overflow;
// callers finalize the current block and start a fresh one.
type Overflow struct {
	// Needed is the number of additional bytes the entry would have required.
	Needed int
}

func (o *Overflow) Error() string {
	return fmt.Sprintf("block: entry needs %d more bytes than the block has left", o.Needed)
}
