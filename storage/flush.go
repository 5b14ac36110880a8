package storage

import (
	"time"

	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"
)

// MoveOldValuesToDisk writes every sealed slot to the cache directory and
// releases its blocks. The active slot is never touched, so flushing does
// not contend with Append. Calling it with nothing to spill is a no-op.
//
// A slot whose write fails stays resident and the first failure is
// returned; slots spilled earlier in the same call stay spilled.
func (s *Store[T]) MoveOldValuesToDisk() error {
	if s.disposed.Load() {
		return ErrDisposed
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if s.disposed.Load() {
		return ErrDisposed
	}

	var sealed []*slot[T]
	for _, sl := range s.snapshot() {
		sl.mu.RLock()
		if sl.state == slotSealed {
			sealed = append(sealed, sl)
		}
		sl.mu.RUnlock()
	}

	if len(sealed) == 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(s.opts.FlushConcurrency)

	for _, sl := range sealed {
		sl := sl
		g.Go(func() error {
			return s.spill(sl)
		})
	}

	return g.Wait()
}

// spill persists one sealed slot. Its blocks are released only after the
// file is durable under its final name.
func (s *Store[T]) spill(sl *slot[T]) error {
	start := time.Now()

	buf := s.pool.GetBytes()
	defer s.pool.PutBytes(buf)

	// Sealed blocks are immutable, so they can be encoded without holding
	// the slot lock.
	sl.mu.RLock()
	blocks := sl.blocks
	sl.mu.RUnlock()

	raw := *buf
	blockBytes := s.layout.BlockBytes()
	for i, b := range blocks {
		s.codec.encode(raw[int64(i)*blockBytes:], b)
	}

	data := packSlot(raw, s.opts.Compress)

	name, err := s.dir.write(sl.id, data)
	if err != nil {
		s.metrics.spillFailures.Inc()
		level.Error(s.logger).Log("msg", "error spilling slot", "slot", sl.id, "err", err)
		return err
	}

	sl.mu.Lock()
	sl.blocks = nil
	sl.state = slotSpilled
	sl.path = name
	sl.diskBytes = int64(len(data))
	sl.mu.Unlock()

	s.resident.Add(-s.layout.SlotBytes())

	s.metrics.spillDuration.Observe(time.Since(start).Seconds())
	s.metrics.slotsSpilled.Inc()
	s.metrics.residentSlots.Dec()
	s.metrics.spilledSlots.Inc()
	level.Debug(s.logger).Log("msg", "slot spilled", "slot", sl.id, "path", name, "bytes", len(data))

	return nil
}
