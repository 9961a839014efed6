package dgm

// EventSink receives lifecycle notifications from an Index's background
// and foreground structural operations. Core packages stay logging-free
// by design (a library should not force a logging backend on embedders);
// internal/dgmlog supplies a zap-backed EventSink for cmd/dgmkv.
type EventSink interface {
	OnCommit(level int, stats CommitStats)
	OnCompact(sources []int, target int, stats CompactStats)
	OnRotate(version int)
	OnError(op string, err error)
}

// CommitStats summarizes one completed commit.
type CommitStats struct {
	Level    int
	Entries  int
	Tombs    int
	Duration int64 // nanoseconds; stamped by the caller, never time.Now() here
}

// CompactStats summarizes one completed compaction.
type CompactStats struct {
	Sources  []int
	Target   int
	Entries  int
	Duration int64
}

// noopSink discards every event; Open substitutes it for a nil sink so a
// caller that never wires a sink doesn't need a nil check everywhere.
type noopSink struct{}

func (noopSink) OnCommit(int, CommitStats)         {}
func (noopSink) OnCompact([]int, int, CompactStats) {}
func (noopSink) OnRotate(int)                      {}
func (noopSink) OnError(string, error)             {}
