package storage

import (
	"strconv"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// ReadSample returns the exact value stored at index.
func (s *Store[T]) ReadSample(index int64) (T, error) {
	var zero T

	if s.disposed.Load() {
		return zero, ErrDisposed
	}

	count := s.count.Load()
	if index < 0 || index >= count {
		return zero, errors.Wrapf(ErrOutOfRange, "index %d, count %d", index, count)
	}

	pos := s.layout.Locate(index)
	sl := s.slotByID(pos.Slot)
	if sl == nil {
		return zero, ErrDisposed
	}

	sl.mu.RLock()
	switch sl.state {
	case slotReleased:
		sl.mu.RUnlock()
		return zero, ErrDisposed
	case slotSpilled:
		sl.mu.RUnlock()
		return s.readSpilledSample(sl, s.layout.Rel(pos))
	}
	v := sl.blocks[pos.Block][pos.Offset]
	sl.mu.RUnlock()

	return v, nil
}

func (s *Store[T]) readSpilledSample(sl *slot[T], rel int64) (T, error) {
	if data, ok := s.cache.get(sl.id); ok {
		s.metrics.cacheHits.Inc()
		return data[rel], nil
	}
	s.metrics.cacheMisses.Inc()

	if !s.cache.enabled() && !s.opts.Compress {
		return s.readSampleAt(sl, rel)
	}

	data, err := s.loadSlot(sl)
	if err != nil {
		var zero T
		return zero, err
	}
	return data[rel], nil
}

// readSampleAt reads a single sample straight from the slot file. The file
// is closed again before returning.
func (s *Store[T]) readSampleAt(sl *slot[T], rel int64) (T, error) {
	var (
		zero T
		buf  [sampleBytes]byte
		out  [1]T
	)

	sl.mu.RLock()
	name, state := sl.path, sl.state
	sl.mu.RUnlock()

	if state == slotReleased {
		return zero, ErrDisposed
	}

	f, err := s.dir.open(sl.id, name)
	if err != nil {
		if s.disposed.Load() {
			return zero, ErrDisposed
		}
		s.metrics.loadFailures.Inc()
		return zero, err
	}
	defer f.Close()

	if _, err := f.ReadAt(buf[:], rel*sampleBytes); err != nil {
		s.metrics.loadFailures.Inc()
		return zero, ioError("read", sl.id, name, err)
	}

	s.codec.decode(out[:], buf[:])
	return out[0], nil
}

// loadSlot materializes a spilled slot from its file. Concurrent loads of
// the same slot share one read.
func (s *Store[T]) loadSlot(sl *slot[T]) ([]T, error) {
	v, err, _ := s.loads.Do(strconv.FormatInt(sl.id, 10), func() (any, error) {
		if data, ok := s.cache.peek(sl.id); ok {
			return data, nil
		}

		sl.mu.RLock()
		name, state := sl.path, sl.state
		sl.mu.RUnlock()

		if state == slotReleased {
			return nil, ErrDisposed
		}

		raw, err := s.dir.read(sl.id, name)
		if err != nil {
			s.metrics.loadFailures.Inc()
			level.Error(s.logger).Log("msg", "error loading spilled slot", "slot", sl.id, "err", err)
			return nil, err
		}

		raw, err = unpackSlot(raw, s.opts.Compress, s.layout.SlotBytes())
		if err != nil {
			s.metrics.loadFailures.Inc()
			return nil, ioError("load", sl.id, name, corruption(s.dir.dir, sl.id, err))
		}

		data := make([]T, s.layout.SlotSize)
		s.codec.decode(data, raw)

		s.cache.put(sl.id, data)
		s.metrics.slotLoads.Inc()
		level.Debug(s.logger).Log("msg", "spilled slot loaded", "slot", sl.id)

		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

// ReadRange returns the samples start..end (both inclusive) converted to
// float64. Integers beyond 2^53 lose precision in the conversion.
//
// Resolution 0 returns every sample. A resolution above 0 returns a min/max
// envelope over buckets of 1<<resolution samples, see Downsample.
//
// If reading a spilled slot fails, the returned buffer holds the samples
// converted before the failure and the error is returned alongside it.
func (s *Store[T]) ReadRange(start, end int64, resolution int) ([]float64, error) {
	if err := s.checkRange(start, end); err != nil {
		return nil, err
	}
	if resolution < 0 {
		return nil, errors.Wrapf(ErrInvalidRange, "resolution level %d", resolution)
	}

	if resolution == 0 {
		return s.readRangeInto(make([]float64, 0, end-start+1), start, end)
	}

	env := newEnvelope(end-start+1, resolution)
	err := s.scan(start, end, func(vs []T) {
		for _, v := range vs {
			env.add(float64(v))
		}
	})
	return env.finish(), err
}

// ReadRangeInto is ReadRange at resolution 0 writing into dst, which is grown
// when too small. It returns the filled slice.
func (s *Store[T]) ReadRangeInto(dst []float64, start, end int64) ([]float64, error) {
	if err := s.checkRange(start, end); err != nil {
		return dst[:0], err
	}
	return s.readRangeInto(dst[:0], start, end)
}

func (s *Store[T]) readRangeInto(dst []float64, start, end int64) ([]float64, error) {
	err := s.scan(start, end, func(vs []T) {
		for _, v := range vs {
			dst = append(dst, float64(v))
		}
	})
	return dst, err
}

func (s *Store[T]) checkRange(start, end int64) error {
	if s.disposed.Load() {
		return ErrDisposed
	}

	count := s.count.Load()
	if start < 0 || end < start || end >= count {
		return errors.Wrapf(ErrInvalidRange, "range [%d, %d], count %d", start, end, count)
	}
	return nil
}

// scan feeds the samples start..end (inclusive) to fn in order, one
// contiguous run at a time. Each slot is resolved on its own from memory,
// the residency cache or its file.
func (s *Store[T]) scan(start, end int64, fn func([]T)) error {
	for i := start; i <= end; {
		pos := s.layout.Locate(i)
		first := s.layout.SlotStart(pos.Slot)
		last := min(end, first+s.layout.SlotSize-1)

		sl := s.slotByID(pos.Slot)
		if sl == nil {
			return ErrDisposed
		}

		if err := s.scanSlot(sl, i-first, last-first, fn); err != nil {
			return err
		}

		i = last + 1
	}
	return nil
}

func (s *Store[T]) scanSlot(sl *slot[T], from, to int64, fn func([]T)) error {
	sl.mu.RLock()
	switch sl.state {
	case slotReleased:
		sl.mu.RUnlock()
		return ErrDisposed
	case slotSpilled:
		sl.mu.RUnlock()
	default:
		sl.scan(s.layout, from, to, fn)
		sl.mu.RUnlock()
		return nil
	}

	data, ok := s.cache.get(sl.id)
	if ok {
		s.metrics.cacheHits.Inc()
	} else {
		s.metrics.cacheMisses.Inc()

		var err error
		if data, err = s.loadSlot(sl); err != nil {
			return err
		}
	}

	fn(data[from : to+1])
	return nil
}
