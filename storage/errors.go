package storage

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
)

var (
	ErrOutOfRange    = errors.New("sample index out of range")
	ErrInvalidRange  = errors.New("invalid sample range")
	ErrOutOfStorage  = errors.New("out of storage")
	ErrIO            = errors.New("cache directory i/o failure")
	ErrDisposed      = errors.New("store disposed")
	ErrInvalidLayout = errors.New("invalid block/slot layout")
)

// IOError reports a failed cache directory operation for one slot.
// errors.Is(err, ErrIO) holds for every IOError; a full disk also matches
// ErrOutOfStorage.
type IOError struct {
	Op   string
	Slot int64
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s slot %d (%s): %v", e.Op, e.Slot, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool {
	switch target {
	case ErrIO:
		return true
	case ErrOutOfStorage:
		return errors.Is(e.Err, syscall.ENOSPC)
	}
	return false
}

func ioError(op string, slot int64, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Slot: slot, Path: path, Err: err}
}
