package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/prometheus/tsdb/wlog"
)

const slotFileExtension = "slot"

// cacheDir is the blob area holding one file per spilled slot. File names
// are derived from the owning store's id and the slot id, so several stores
// can share a directory.
type cacheDir struct {
	fs      FileSystem
	dir     string
	id      string
	created bool
	logger  log.Logger
}

func openCacheDir(fs FileSystem, logger log.Logger, dir, id string) (*cacheDir, error) {
	c := &cacheDir{fs: fs, dir: dir, id: id, logger: logger}

	if _, err := fs.Stat(dir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "stat cache directory %s", dir)
		}
		if err := fs.MkdirAll(dir, 0o777); err != nil {
			return nil, errors.Wrapf(err, "create cache directory %s", dir)
		}
		c.created = true
	}

	return c, nil
}

func (c *cacheDir) slotName(slot int64) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s-%020d.%s", c.id, slot, slotFileExtension))
}

// write stores data as the file of slot. The content is written to a
// temporary file, synced and then renamed, so a slot file either holds the
// complete image or does not exist.
func (c *cacheDir) write(slot int64, data []byte) (string, error) {
	name := c.slotName(slot)
	tmp := name + ".tmp"

	f, err := c.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return "", ioError("create", slot, tmp, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		c.discard(tmp)
		return "", ioError("write", slot, tmp, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		c.discard(tmp)
		return "", ioError("sync", slot, tmp, err)
	}

	if err := f.Close(); err != nil {
		c.discard(tmp)
		return "", ioError("close", slot, tmp, err)
	}

	if err := c.fs.Rename(tmp, name); err != nil {
		c.discard(tmp)
		return "", ioError("rename", slot, name, err)
	}

	return name, nil
}

// read returns the full content of the file of slot.
func (c *cacheDir) read(slot int64, name string) ([]byte, error) {
	f, err := c.fs.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, ioError("open", slot, name, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, ioError("stat", slot, name, err)
	}

	data := make([]byte, stat.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, ioError("read", slot, name, err)
	}

	return data, nil
}

func (c *cacheDir) open(slot int64, name string) (File, error) {
	f, err := c.fs.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, ioError("open", slot, name, err)
	}
	return f, nil
}

// remove deletes a slot file. A file that is already gone counts as removed.
func (c *cacheDir) remove(slot int64, name string) error {
	if err := c.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ioError("remove", slot, name, err)
	}
	return nil
}

func (c *cacheDir) discard(tmp string) {
	if err := c.fs.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		level.Warn(c.logger).Log("msg", "error removing temporary slot file", "path", tmp, "err", err)
	}
}

// release removes the directory if this store created it and nothing else
// lives in it anymore.
func (c *cacheDir) release() {
	if !c.created {
		return
	}
	if err := c.fs.Remove(c.dir); err != nil && !errors.Is(err, os.ErrNotExist) && !errors.Is(err, syscall.ENOTEMPTY) && !errors.Is(err, syscall.EEXIST) {
		level.Debug(c.logger).Log("msg", "cache directory left in place", "dir", c.dir, "err", err)
	}
}

func corruption(dir string, slot int64, err error) error {
	return &wlog.CorruptionErr{Dir: dir, Segment: int(slot), Offset: 0, Err: err}
}
