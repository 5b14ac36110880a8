package storage

import "github.com/pkg/errors"

const (
	DefaultBlockSize = 4096
	DefaultSlotSize  = 1 << 20

	sampleBytes = 8
)

// Layout fixes the geometry of a store: a block holds BlockSize samples
// and a slot holds SlotSize samples, i.e. SlotSize/BlockSize blocks.
type Layout struct {
	BlockSize int64
	SlotSize  int64
}

func DefaultLayout() Layout {
	return Layout{BlockSize: DefaultBlockSize, SlotSize: DefaultSlotSize}
}

func (l Layout) Validate() error {
	if l.BlockSize <= 0 || l.SlotSize <= 0 {
		return errors.Wrapf(ErrInvalidLayout, "sizes must be positive (block %d, slot %d)", l.BlockSize, l.SlotSize)
	}
	if l.SlotSize%l.BlockSize != 0 {
		return errors.Wrapf(ErrInvalidLayout, "slot size %d is not a multiple of block size %d", l.SlotSize, l.BlockSize)
	}
	return nil
}

func (l Layout) BlocksPerSlot() int64 { return l.SlotSize / l.BlockSize }

func (l Layout) BlockBytes() int64 { return l.BlockSize * sampleBytes }

func (l Layout) SlotBytes() int64 { return l.SlotSize * sampleBytes }

// SlotStart returns the global index of the first sample of slot id.
func (l Layout) SlotStart(id int64) int64 { return id * l.SlotSize }

// Position addresses one sample inside the slot/block hierarchy.
type Position struct {
	Slot   int64
	Block  int64
	Offset int64
}

// Locate maps global sample index n to its slot, block within the slot and
// offset within the block.
func (l Layout) Locate(n int64) Position {
	rel := n % l.SlotSize
	return Position{
		Slot:   n / l.SlotSize,
		Block:  rel / l.BlockSize,
		Offset: n % l.BlockSize,
	}
}

// Rel returns the slot-relative index of the position.
func (l Layout) Rel(p Position) int64 { return p.Block*l.BlockSize + p.Offset }
