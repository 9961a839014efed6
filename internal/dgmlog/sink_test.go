package dgmlog_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/calvinalkan/dgmkv/internal/dgmlog"
	"github.com/calvinalkan/dgmkv/pkg/dgm"
)

func TestSinkLogsEventsWithoutPanicking(t *testing.T) {
	log := zaptest.NewLogger(t)
	sink := dgmlog.New(log)

	require.NotPanics(t, func() {
		sink.OnCommit(1, dgm.CommitStats{Level: 1, Entries: 10, Tombs: 2})
		sink.OnCompact([]int{0, 1}, 2, dgm.CompactStats{Sources: []int{0, 1}, Target: 2, Entries: 20})
		sink.OnRotate(3)
		sink.OnError("commit", errors.New("boom"))
	})
}
