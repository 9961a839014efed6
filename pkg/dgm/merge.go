package dgm

import (
	"bytes"

	"github.com/calvinalkan/dgmkv/pkg/entry"
	"github.com/calvinalkan/dgmkv/pkg/robt"
)

// mergeSources combines N ascending-key sources, in any order, into one
// ascending-key stream. For a key
// present in more than one source, the entries are folded together with
// entry.XMerge so the result's delta chain is the seqno-ordered union of
// every source's versions - the k-way y-merge compact requires.
func mergeSources(sources []robt.NextFunc, dec entry.Decoder) (robt.NextFunc, error) {
	type peeked struct {
		e   *entry.Entry
		has bool
	}

	peeks := make([]peeked, len(sources))

	advance := func(i int) error {
		e, ok, err := sources[i]()
		if err != nil {
			return err
		}

		peeks[i] = peeked{e: e, has: ok}

		return nil
	}

	for i := range sources {
		if err := advance(i); err != nil {
			return nil, err
		}
	}

	return func() (*entry.Entry, bool, error) {
		minIdx := -1

		for i, p := range peeks {
			if !p.has {
				continue
			}

			if minIdx == -1 || bytes.Compare(p.e.Key, peeks[minIdx].e.Key) < 0 {
				minIdx = i
			}
		}

		if minIdx == -1 {
			return nil, false, nil
		}

		minKey := peeks[minIdx].e.Key

		var merged *entry.Entry

		for i, p := range peeks {
			if !p.has || !bytes.Equal(p.e.Key, minKey) {
				continue
			}

			var err error

			merged, err = entry.XMerge(merged, p.e, dec)
			if err != nil {
				return nil, false, err
			}

			if err := advance(i); err != nil {
				return nil, false, err
			}
		}

		return merged, true, nil
	}, nil
}
