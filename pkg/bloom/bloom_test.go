package bloom_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/dgmkv/pkg/bloom"
)

func TestFilterNoFalseNegatives(t *testing.T) {
	f := bloom.New(1000, 0.01)

	keys := make([][]byte, 1000)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("key-%05d", i))
		f.Add(keys[i])
	}

	for _, k := range keys {
		require.True(t, f.MayContain(k))
	}
}

func TestFilterMarshalRoundTrip(t *testing.T) {
	f := bloom.New(100, 0.01)
	f.Add([]byte("present"))

	restored, err := bloom.Unmarshal(f.Marshal())
	require.NoError(t, err)
	require.True(t, restored.MayContain([]byte("present")))
}

func TestFilterFalsePositiveRateIsReasonable(t *testing.T) {
	f := bloom.New(1000, 0.01)

	for i := 0; i < 1000; i++ {
		f.Add([]byte(fmt.Sprintf("present-%d", i)))
	}

	falsePositives := 0

	for i := 0; i < 5000; i++ {
		if f.MayContain([]byte(fmt.Sprintf("absent-%d", i))) {
			falsePositives++
		}
	}

	require.Less(t, falsePositives, 250, "false positive rate should stay near the configured 1%%")
}
