package storage

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

// TestLongAcquisition appends 16M random timestamps with the default layout,
// flushing every 4096 appends, and reads them back the way the export and
// plot paths do.
func TestLongAcquisition(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping long acquisition test in short mode")
	}

	const (
		total      = 16777216
		flushEvery = 4096
	)

	opts := DefaultOptions(filepath.Join(t.TempDir(), "cache"))
	opts.Logger = log.NewNopLogger()

	s, err := New[int64](opts)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Dispose()) }()

	r := rand.New(rand.NewSource(16777216))
	source := make([]int64, total)

	for i := range source {
		source[i] = int64(r.Uint64())
		require.NoError(t, s.Append(source[i]))

		if (i+1)%flushEvery == 0 {
			require.NoError(t, s.MoveOldValuesToDisk())
		}
	}

	require.Equal(t, int64(total), s.Count())

	st := s.Stats()
	require.Equal(t, total/DefaultSlotSize, st.SpilledSlots)
	require.Equal(t, 0, st.SealedSlots)
	require.Equal(t, int64(0), st.ResidentBytes)

	for i := 0; i < total; i += 16 {
		got, err := s.ReadSample(int64(i))
		require.NoError(t, err)
		if got != source[i] {
			require.Equal(t, source[i], got, "sample %d", i)
		}
	}

	start := int64(total - DefaultSlotSize - 1)
	out, err := s.ReadRange(start, total-1, 0)
	require.NoError(t, err)
	require.Len(t, out, DefaultSlotSize+1)

	for k, v := range out {
		if v != float64(source[start+int64(k)]) {
			require.Equal(t, float64(source[start+int64(k)]), v, "offset %d", k)
		}
	}
}
