package dgm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/calvinalkan/dgmkv/pkg/entry"
	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
	"github.com/calvinalkan/dgmkv/pkg/mvcc"
	"github.com/calvinalkan/dgmkv/pkg/robt"
)

// Index is the LSM orchestrator: one write-active memory tier, a fixed
// array of disk tiers, and the root manifest describing them. Every
// structural mutation (Commit, Compact) takes mu; the actual disk build
// runs with mu released, with the affected slots marked Commit/Compact so
// concurrent callers know to leave them alone.
type Index struct {
	fsys gofs.FS
	cfg  Config
	sink EventSink

	mu    sync.Mutex
	mem   *mvcc.Index
	m1    *mvcc.Index // frozen flush-source tier; nil outside a commit
	disks []slot

	manVersion int
	man        manifest

	closeCommit  chan chan struct{}
	closeCompact chan chan struct{}
	wg           sync.WaitGroup
}

// Open recovers an Index's root manifest and disk tiers under cfg.Dir
// (creating a fresh, empty set if none exist), then starts any configured
// background tasks.
func Open(fsys gofs.FS, cfg Config, sink EventSink) (*Index, error) {
	if sink == nil {
		sink = noopSink{}
	}

	if cfg.Levels == 0 {
		cfg.Levels = DefaultNumLevels
	}

	version, man, found, err := findLatestManifest(cfg.Dir, cfg.Name, cfg.Kind)
	if err != nil {
		return nil, err
	}

	if !found {
		man = manifest{NumLevels: cfg.Levels, Lsm: cfg.Lsm, MemRatio: cfg.MemRatio, DiskRatio: cfg.DiskRatio}
	}

	ix := &Index{
		fsys:       fsys,
		cfg:        cfg,
		sink:       sink,
		mem:        mvcc.New(cfg.Lsm),
		disks:      make([]slot, cfg.Levels),
		manVersion: version,
		man:        man,
	}

	for i := range ix.disks {
		levelCfg := ix.levelConfig(i)

		exists, err := fsys.Exists(levelCfg.IndexFile())
		if err != nil {
			return nil, fmt.Errorf("dgm: check level %d: %w", i, err)
		}

		if !exists {
			continue
		}

		r, err := robt.Open(fsys, levelCfg)
		if err != nil {
			return nil, fmt.Errorf("dgm: open level %d: %w", i, err)
		}

		ix.disks[i] = slot{state: slotActive, disk: r, cfg: levelCfg}
	}

	ix.mem.SeedSeqno(ix.maxSeqnoOnDisk())

	if cfg.AutoCommitInterval > 0 {
		ix.closeCommit = make(chan chan struct{})
		ix.wg.Add(1)

		go ix.autoCommitLoop()
	}

	if cfg.AutoCompactInterval > 0 {
		ix.closeCompact = make(chan chan struct{})
		ix.wg.Add(1)

		go ix.autoCompactLoop()
	}

	return ix, nil
}

func (ix *Index) levelConfig(level int) robt.Config {
	c := ix.cfg.Disk
	c.Dir = ix.cfg.Dir
	c.Name = fmt.Sprintf("%s-L%d", ix.cfg.Name, level)

	return c
}

// Get looks up key across the memory tier, the frozen flush-source tier
// (if a commit is in flight), and the disk tiers. A memory-tier hit is
// returned as is; among the disk tiers every slot is consulted and the hit
// whose head has the highest seqno wins, since a commit can land in a slot
// deeper than one holding older data.
func (ix *Index) Get(key []byte, dec entry.Decoder) (*entry.Entry, bool, error) {
	ix.mu.Lock()
	mem := ix.mem
	m1 := ix.m1
	disks := make([]slot, len(ix.disks))
	copy(disks, ix.disks)
	ix.mu.Unlock()

	if e, ok := mem.Get(key); ok {
		return e, true, nil
	}

	if m1 != nil {
		if e, ok := m1.Get(key); ok {
			return e, true, nil
		}
	}

	var best *entry.Entry

	for _, s := range disks {
		if s.disk == nil {
			continue
		}

		e, ok, err := s.disk.Get(key, dec)
		if err != nil {
			return nil, false, err
		}

		if ok && (best == nil || e.Head.Seqno > best.Head.Seqno) {
			best = e
		}
	}

	if best != nil {
		return best, true, nil
	}

	return nil, false, nil
}

// Upsert applies a live value to the memory tier.
func (ix *Index) Upsert(key []byte, value entry.Value) (*entry.Entry, error) {
	ix.mu.Lock()
	mem := ix.mem
	ix.mu.Unlock()

	return mem.Upsert(key, value, 0)
}

// Delete tombstones a key in the memory tier.
func (ix *Index) Delete(key []byte) (*entry.Entry, bool, error) {
	ix.mu.Lock()
	mem := ix.mem
	ix.mu.Unlock()

	return mem.Delete(key)
}

// Close stops any background tasks (waiting for them to exit cleanly) and
// closes every open disk reader.
func (ix *Index) Close() error {
	if ix.closeCommit != nil {
		done := make(chan struct{})
		ix.closeCommit <- done
		<-done
	}

	if ix.closeCompact != nil {
		done := make(chan struct{})
		ix.closeCompact <- done
		<-done
	}

	ix.wg.Wait()

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for i := range ix.disks {
		if ix.disks[i].disk != nil {
			_ = ix.disks[i].disk.Close()
		}
	}

	return nil
}

func (ix *Index) autoCommitLoop() {
	defer ix.wg.Done()

	ticker := time.NewTicker(ix.cfg.AutoCommitInterval)
	defer ticker.Stop()

	for {
		select {
		case done := <-ix.closeCommit:
			close(done)

			return
		case <-ticker.C:
			ix.mu.Lock()
			snap := ix.mem.Snapshot()
			ix.mu.Unlock()

			if snapshotFootprint(snap) < ix.cfg.M0Limit {
				continue
			}

			if err := ix.Commit(); err != nil {
				ix.sink.OnError("auto-commit", err)
			}
		}
	}
}

func (ix *Index) autoCompactLoop() {
	defer ix.wg.Done()

	ticker := time.NewTicker(ix.cfg.AutoCompactInterval)
	defer ticker.Stop()

	for {
		select {
		case done := <-ix.closeCompact:
			close(done)

			return
		case <-ticker.C:
			if err := ix.Compact(); err != nil && !errors.Is(err, ErrNoCompactionTarget) {
				ix.sink.OnError("auto-compact", err)
			}
		}
	}
}
