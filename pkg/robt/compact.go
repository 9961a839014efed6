package robt

import (
	gofs "github.com/calvinalkan/dgmkv/pkg/fs"

	"github.com/calvinalkan/dgmkv/pkg/entry"
)

// Compact rebuilds a disk index from an existing Reader's Scan output,
// applying cfg.TombstonePurge along the way. It is Build with a Reader
// standing in for the upstream MVCC snapshot - the same bottom-up pass
// drops obsolete versions instead of merely copying them forward.
func Compact(fsys gofs.FS, cfg Config, src *Reader, dec entry.Decoder) (Stats, error) {
	next, err := src.Scan(dec)
	if err != nil {
		return Stats{}, err
	}

	return Build(fsys, cfg, next)
}
