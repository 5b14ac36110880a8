package storage

// Stats is a point-in-time view of a store.
type Stats struct {
	Count         int64
	ActiveSlots   int
	SealedSlots   int
	SpilledSlots  int
	ResidentBytes int64
	SpilledBytes  int64
	CachedSlots   int
	CacheHits     int64
	CacheMisses   int64
	// CacheHitRatio is in percent (0-100).
	CacheHitRatio float64
}

// Stats never fails. After Dispose it reports the count reached at
// disposal with no slots, no resident or spilled bytes and an empty
// residency cache; hit and miss totals are kept.
func (s *Store[T]) Stats() Stats {
	st := Stats{
		Count:         s.count.Load(),
		ResidentBytes: s.resident.Load(),
		CachedSlots:   s.cache.len(),
		CacheHits:     s.cache.hits.Load(),
		CacheMisses:   s.cache.misses.Load(),
	}

	for _, sl := range s.snapshot() {
		sl.mu.RLock()
		switch sl.state {
		case slotActive:
			st.ActiveSlots++
		case slotSealed:
			st.SealedSlots++
		case slotSpilled:
			st.SpilledSlots++
			st.SpilledBytes += sl.diskBytes
		}
		sl.mu.RUnlock()
	}

	if total := st.CacheHits + st.CacheMisses; total > 0 {
		st.CacheHitRatio = float64(st.CacheHits) / float64(total) * 100.0
	}

	return st
}
