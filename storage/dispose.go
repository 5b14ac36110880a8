package storage

import (
	"github.com/go-kit/log/level"
)

// Dispose releases all memory and deletes every cache file the store
// created. Files already removed by someone else are not an error. Any
// later call on the store returns ErrDisposed.
func (s *Store[T]) Dispose() error {
	if !s.disposed.CompareAndSwap(false, true) {
		return ErrDisposed
	}

	// Wait for an in-flight flush so no file appears after cleanup.
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	slots := s.slots
	s.slots = nil
	s.mu.Unlock()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	removed := 0
	for _, sl := range slots {
		sl.mu.Lock()
		name := sl.path
		sl.blocks = nil
		sl.state = slotReleased
		sl.mu.Unlock()

		if name == "" {
			continue
		}

		if err := s.dir.remove(sl.id, name); err != nil {
			level.Error(s.logger).Log("msg", "error removing slot file", "slot", sl.id, "err", err)
			keep(err)
			continue
		}
		removed++
	}

	s.cache.close()
	s.resident.Store(0)
	s.dir.release()
	s.metrics.unregister()

	level.Debug(s.logger).Log("msg", "store disposed", "slots", len(slots), "files_removed", removed)

	return firstErr
}
