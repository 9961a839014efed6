package robt

import (
	"fmt"

	"github.com/calvinalkan/dgmkv/pkg/block"
	"github.com/calvinalkan/dgmkv/pkg/entry"
)

// Scan returns a pull iterator over every entry in the index, in ascending
// key order. Used by compaction and cross-tier merges, which need to read a
// whole disk index sequentially rather than by point lookup.
func (r *Reader) Scan(dec entry.Decoder) (NextFunc, error) {
	if r.stats.Empty {
		return func() (*entry.Entry, bool, error) { return nil, false, nil }, nil
	}

	leaves, err := r.leafFposList()
	if err != nil {
		return nil, err
	}

	var (
		leafIdx    int
		curEntries []block.ZEntry
		curIdx     int
	)

	advance := func() (*entry.Entry, bool, error) {
		for {
			if curIdx < len(curEntries) {
				ze := curEntries[curIdx]
				curIdx++

				e, err := r.toEntry(ze, dec)
				if err != nil {
					return nil, false, err
				}

				return e, true, nil
			}

			if leafIdx >= len(leaves) {
				return nil, false, nil
			}

			blk, err := r.parseZ(leaves[leafIdx])
			if err != nil {
				return nil, false, err
			}

			leafIdx++

			curEntries = curEntries[:0]

			for i := 0; i < blk.Len(); i++ {
				ze, err := blk.EntryAt(i)
				if err != nil {
					return nil, false, err
				}

				curEntries = append(curEntries, ze)
			}

			curIdx = 0
		}
	}

	return advance, nil
}

func (r *Reader) leafFposList() ([]uint64, error) {
	if r.stats.RootIsZ {
		return []uint64{r.stats.RootFpos}, nil
	}

	var out []uint64

	var walk func(fpos uint64) error

	walk = func(fpos uint64) error {
		mb, err := r.parseM(fpos)
		if err != nil {
			return err
		}

		for i := 0; i < mb.Len(); i++ {
			me, err := mb.EntryAt(i)
			if err != nil {
				return err
			}

			if me.ChildIsZ {
				out = append(out, me.ChildFpos)
			} else if err := walk(me.ChildFpos); err != nil {
				return err
			}
		}

		return nil
	}

	if err := walk(r.stats.RootFpos); err != nil {
		return nil, fmt.Errorf("robt: scan: %w", err)
	}

	return out, nil
}
