package storage

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentAppendReadFlush(t *testing.T) {
	l := Layout{BlockSize: 64, SlotSize: 256}
	opts := testOptions(t, l)
	opts.CacheSlots = 3
	s := newTestStore[int64](t, opts)

	values := randomInt64s(rand.New(rand.NewSource(30)), 40*l.SlotSize+17)

	var (
		wg   sync.WaitGroup
		done atomic.Bool
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer done.Store(true)

		for _, v := range values {
			if !assert.NoError(t, s.Append(v)) {
				return
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		for !done.Load() {
			if !assert.NoError(t, s.MoveOldValuesToDisk()) {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))

			for !done.Load() {
				count := s.Count()
				if count == 0 {
					continue
				}

				i := rnd.Int63n(count)
				got, err := s.ReadSample(i)
				if !assert.NoError(t, err) || !assert.Equal(t, values[i], got, "sample %d", i) {
					return
				}

				start := rnd.Int63n(count)
				end := min(count-1, start+rnd.Int63n(2*l.SlotSize))
				out, err := s.ReadRange(start, end, 0)
				if !assert.NoError(t, err) {
					return
				}
				for k, v := range out {
					if !assert.Equal(t, float64(values[start+int64(k)]), v) {
						return
					}
				}
			}
		}(int64(r))
	}

	wg.Wait()

	require.NoError(t, s.MoveOldValuesToDisk())
	require.Equal(t, int64(len(values)), s.Count())

	for i, want := range values {
		got, err := s.ReadSample(int64(i))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestConcurrentLoadsShareOneRead(t *testing.T) {
	opts := testOptions(t, smallLayout)
	opts.CacheSlots = 4
	s := newTestStore[int64](t, opts)

	values := randomInt64s(rand.New(rand.NewSource(31)), smallLayout.SlotSize+1)
	appendAll(t, s, values, 0)
	require.NoError(t, s.MoveOldValuesToDisk())

	var wg sync.WaitGroup
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.ReadRange(0, smallLayout.SlotSize-1, 0)
			if assert.NoError(t, err) {
				assert.Len(t, out, int(smallLayout.SlotSize))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, s.Stats().CachedSlots)
}
