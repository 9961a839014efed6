package dgm

import (
	"fmt"

	"github.com/calvinalkan/dgmkv/pkg/entry"
	"github.com/calvinalkan/dgmkv/pkg/mvcc"
	"github.com/calvinalkan/dgmkv/pkg/robt"
)

// Commit freezes the current memory tier, chooses the shallowest disk slot
// that can absorb it, streams the frozen tier into a freshly built disk
// index there, and rotates the root manifest. The disk build itself runs
// without ix.mu held; only the slot bookkeeping around it is serialized.
func (ix *Index) Commit() error {
	ix.mu.Lock()

	if ix.m1 == nil {
		ix.m1 = ix.mem
		newMem := mvcc.New(ix.cfg.Lsm)
		newMem.SeedSeqno(ix.maxSeqnoOnDisk())
		// m1's writes are not on disk yet; its next seqno lies above all of them.
		newMem.SeedSeqno(ix.m1.NextSeqno())
		ix.mem = newMem
	}

	m1 := ix.m1
	snap := m1.Snapshot()
	mf := snapshotFootprint(snap)

	level, ok := ix.chooseCommitLevel(mf)
	if !ok {
		ix.mu.Unlock()

		return ErrDiskIndexFail
	}

	ix.disks[level].state = slotCommit
	levelCfg := ix.levelConfig(level)
	ix.mu.Unlock()

	stats, err := robt.Build(ix.fsys, levelCfg, snap.Scan())
	if err != nil {
		ix.mu.Lock()
		ix.disks[level].state = slotEmpty
		ix.mu.Unlock()

		return fmt.Errorf("dgm: commit build level %d: %w", level, err)
	}

	reader, err := robt.Open(ix.fsys, levelCfg)
	if err != nil {
		return fmt.Errorf("dgm: commit open level %d: %w", level, err)
	}

	ix.mu.Lock()
	ix.disks[level] = slot{state: slotActive, disk: reader, cfg: levelCfg}
	ix.m1 = nil

	version, err := rotateManifest(ix.cfg.Dir, ix.cfg.Name, ix.cfg.Kind, ix.manVersion, ix.man)
	if err != nil {
		ix.mu.Unlock()

		return fmt.Errorf("dgm: commit rotate manifest: %w", err)
	}

	ix.manVersion = version
	ix.mu.Unlock()

	ix.sink.OnCommit(level, CommitStats{Level: level, Entries: stats.NEntries, Tombs: stats.NDeleted})
	ix.sink.OnRotate(version)

	return nil
}

// chooseCommitLevel walks slots shallow to deep and picks the first empty
// one whose deeper neighbor makes it a sound flush target: disks[i] must
// be Empty, and either i is the deepest slot or
// mf/footprint(disks[i+1]) < MemRatio.
func (ix *Index) chooseCommitLevel(mf int) (int, bool) {
	for i := 0; i < len(ix.disks); i++ {
		if ix.disks[i].state != slotEmpty {
			continue
		}

		if i == len(ix.disks)-1 {
			return i, true
		}

		next := ix.disks[i+1].footprint()
		if next == 0 {
			return i, true
		}

		if float64(mf)/float64(next) < ix.cfg.MemRatio {
			return i, true
		}
	}

	return 0, false
}

// maxSeqnoOnDisk returns the highest MaxSeqno stat across every active
// disk slot, used to seed a fresh memory tier so seqnos stay globally
// monotonic across a commit.
func (ix *Index) maxSeqnoOnDisk() uint64 {
	var max uint64

	for i := range ix.disks {
		if ix.disks[i].disk == nil {
			continue
		}

		if s := ix.disks[i].disk.Stats().MaxSeqno; s > max {
			max = s
		}
	}

	return max
}

// snapshotFootprint counts entries in a memory-tier snapshot, used as the
// footprint proxy the commit/compact ratio math compares against
// disk-tier entry counts.
func snapshotFootprint(snap *mvcc.Snapshot) int {
	n := 0

	snap.Range(func(*entry.Entry) bool {
		n++

		return true
	})

	return n
}
