package storage

import "sync"

type slotState int32

const (
	slotActive slotState = iota
	slotSealed
	slotSpilled
	// slotReleased marks a slot torn down by Dispose.
	slotReleased
)

func (s slotState) String() string {
	switch s {
	case slotActive:
		return "active"
	case slotSealed:
		return "sealed"
	case slotSpilled:
		return "spilled"
	case slotReleased:
		return "released"
	}
	return "unknown"
}

// slot groups a fixed number of blocks. While resident it owns its block
// memory; once spilled the file at path is the only owner of its samples.
//
// The producer writes block contents of the active slot without holding mu;
// readers only ever touch indexes below the published count. mu guards the
// state transitions and the blocks/path fields themselves.
type slot[T Sample] struct {
	id int64

	mu        sync.RWMutex
	state     slotState
	blocks    [][]T
	path      string
	diskBytes int64
}

func newSlot[T Sample](id int64, layout Layout) *slot[T] {
	return &slot[T]{
		id:     id,
		state:  slotActive,
		blocks: make([][]T, layout.BlocksPerSlot()),
	}
}

// scan calls fn with the resident samples [from, to] (slot relative,
// inclusive) one block run at a time. Callers hold mu for reading.
func (sl *slot[T]) scan(layout Layout, from, to int64, fn func([]T)) {
	for r := from; r <= to; {
		b := r / layout.BlockSize
		first := b * layout.BlockSize
		stop := min(to, first+layout.BlockSize-1)
		fn(sl.blocks[b][r-first : stop-first+1])
		r = stop + 1
	}
}
