package storage

import (
	"io"
	"os"

	"github.com/prometheus/prometheus/tsdb/fileutil"
	"github.com/prometheus/prometheus/tsdb/wlog"
)

// File is an open slot file.
type File interface {
	wlog.SegmentFile
	io.ReaderAt
}

// FileSystem is the cache directory's view of the filesystem. Tests swap it
// to inject failures.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	MkdirAll(path string, perm os.FileMode) error
	Stat(name string) (os.FileInfo, error)
}

// LocalFS implements FileSystem on the os package.
type LocalFS struct{}

func (LocalFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (LocalFS) Remove(name string) error { return os.Remove(name) }

// Rename also syncs the parent directory so the new name survives a crash.
func (LocalFS) Rename(oldpath, newpath string) error { return fileutil.Rename(oldpath, newpath) }

func (LocalFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (LocalFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }
