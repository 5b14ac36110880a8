package storage

import (
	"math"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingRoundTrip(t *testing.T) {
	opts := testOptions(t, smallLayout)
	opts.ID = "session"

	rec, err := NewRecording(opts, 3)
	require.NoError(t, err)

	assert.Equal(t, "session", rec.ID())
	assert.Equal(t, 3, rec.Channels())
	assert.Equal(t, "session-ts", rec.Timestamps().ID())
	assert.Equal(t, "session-ch02", rec.Channel(2).ID())

	rows := 3*smallLayout.SlotSize + 2
	for i := int64(0); i < rows; i++ {
		ts := int64(1_700_000_000_000_000_000) + i*1000
		require.NoError(t, rec.AppendRow(ts, float64(i), -float64(i), math.Sqrt(float64(i))))

		if i%7 == 0 {
			require.NoError(t, rec.MoveOldValuesToDisk())
		}
	}
	require.NoError(t, rec.MoveOldValuesToDisk())
	assert.Equal(t, rows, rec.Count())

	stats := rec.Stats()
	require.Len(t, stats, 4)
	for _, st := range stats {
		assert.Equal(t, 3, st.SpilledSlots)
	}

	for i := int64(0); i < rows; i++ {
		ts, err := rec.Timestamps().ReadSample(i)
		require.NoError(t, err)
		require.Equal(t, int64(1_700_000_000_000_000_000)+i*1000, ts)

		v, err := rec.Channel(2).ReadSample(i)
		require.NoError(t, err)
		require.Equal(t, math.Sqrt(float64(i)), v)
	}

	out, err := rec.Channel(1).ReadRange(0, rows-1, 0)
	require.NoError(t, err)
	for k, v := range out {
		require.Equal(t, -float64(k), v)
	}

	require.NoError(t, rec.Dispose())

	_, err = os.Stat(opts.Dir)
	assert.True(t, os.IsNotExist(err))

	require.ErrorIs(t, rec.AppendRow(0, 1, 2, 3), ErrDisposed)
}

func TestRecordingRejectsWrongRowWidth(t *testing.T) {
	rec, err := NewRecording(testOptions(t, smallLayout), 2)
	require.NoError(t, err)
	defer rec.Dispose()

	require.Error(t, rec.AppendRow(1, 1))
	assert.Equal(t, int64(0), rec.Count())

	require.NoError(t, rec.AppendRow(1, 1, 2))
	assert.Equal(t, int64(1), rec.Count())
}

func TestRecordingWithoutChannels(t *testing.T) {
	rec, err := NewRecording(testOptions(t, smallLayout), 0)
	require.NoError(t, err)

	require.NoError(t, rec.AppendRow(10))
	assert.Equal(t, int64(1), rec.Count())
	assert.NotEmpty(t, rec.ID())

	require.NoError(t, rec.Dispose())

	_, err = NewRecording(testOptions(t, smallLayout), -1)
	require.Error(t, err)
}

func TestRecordingRejectedRowLeavesStoresAligned(t *testing.T) {
	fs := &faultyFS{onCreate: func(name string) error {
		if strings.Contains(name, "-ch00-") {
			return syscall.EIO
		}
		return nil
	}}

	opts := testOptions(t, smallLayout)
	opts.ID = "rec"
	opts.FileSystem = fs
	opts.MaxResidentBytes = smallLayout.SlotBytes() + smallLayout.BlockBytes()

	rec, err := NewRecording(opts, 1)
	require.NoError(t, err)
	defer rec.Dispose()

	const rows = 20
	for i := 0; i < rows; i++ {
		require.NoError(t, rec.AppendRow(int64(i), float64(i)))
	}

	// The timestamps spill, the channel stays at its memory budget.
	require.ErrorIs(t, rec.MoveOldValuesToDisk(), ErrIO)

	err = rec.AppendRow(1000, 1000)
	require.ErrorIs(t, err, ErrOutOfStorage)

	assert.Equal(t, int64(rows), rec.Timestamps().Count())
	assert.Equal(t, int64(rows), rec.Channel(0).Count())
	assert.Equal(t, int64(rows), rec.Count())

	fs.set(func(f *faultyFS) { f.onCreate = nil })
	require.NoError(t, rec.MoveOldValuesToDisk())

	require.NoError(t, rec.AppendRow(2000, 2000))
	assert.Equal(t, int64(rows+1), rec.Timestamps().Count())
	assert.Equal(t, int64(rows+1), rec.Channel(0).Count())

	ts, err := rec.Timestamps().ReadSample(rows)
	require.NoError(t, err)
	v, err := rec.Channel(0).ReadSample(rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), ts)
	assert.Equal(t, float64(2000), v)
}
