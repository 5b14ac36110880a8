package storage

import (
	"sync"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// Options configures a Store.
type Options struct {
	// Dir is the cache directory. It is created when missing.
	Dir string
	// ID names the store's files inside Dir. A random id is used when empty.
	ID     string
	Layout Layout
	// CacheSlots is how many reloaded spilled slots stay resident for
	// subsequent reads. 0 disables the residency cache; point reads on
	// uncompressed slot files then read the single sample from the file,
	// opening and closing it on every call so no descriptor stays open.
	CacheSlots int
	// FlushConcurrency bounds how many slots one flush writes in parallel.
	FlushConcurrency int
	// Compress snappy-encodes slot files.
	Compress bool
	// MaxResidentBytes caps block memory held by unspilled slots. 0 means
	// no limit.
	MaxResidentBytes int64

	Logger     log.Logger
	Registerer prometheus.Registerer
	FileSystem FileSystem
}

func DefaultOptions(dir string) Options {
	return Options{
		Dir:              dir,
		Layout:           DefaultLayout(),
		CacheSlots:       4,
		FlushConcurrency: 2,
	}
}

// Store is an append-only sample store that pages sealed slots out to a
// cache directory on demand.
//
// One goroutine appends; any number of goroutines read; MoveOldValuesToDisk
// may be called from any goroutine.
type Store[T Sample] struct {
	opts    Options
	layout  Layout
	logger  log.Logger
	metrics *StoreMetrics
	codec   codec[T]
	dir     *cacheDir
	pool    *BytesPool

	count    atomic.Int64
	resident atomic.Int64
	disposed atomic.Bool

	mu    sync.RWMutex
	slots []*slot[T]

	flushMu sync.Mutex
	loads   singleflight.Group
	cache   *slotCache[T]
}

// New creates an empty store.
func New[T Sample](opts Options) (*Store[T], error) {
	if opts.Dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if opts.Layout == (Layout{}) {
		opts.Layout = DefaultLayout()
	}
	if err := opts.Layout.Validate(); err != nil {
		return nil, err
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.FlushConcurrency <= 0 {
		opts.FlushConcurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.FileSystem == nil {
		opts.FileSystem = LocalFS{}
	}

	logger := log.With(opts.Logger, "store", opts.ID)

	dir, err := openCacheDir(opts.FileSystem, logger, opts.Dir, opts.ID)
	if err != nil {
		return nil, err
	}

	var registerer prometheus.Registerer
	if opts.Registerer != nil {
		registerer = prometheus.WrapRegistererWith(
			prometheus.Labels{"store": opts.ID},
			prometheus.WrapRegistererWithPrefix("strata_store_", opts.Registerer),
		)
	}

	s := &Store[T]{
		opts:    opts,
		layout:  opts.Layout,
		logger:  logger,
		metrics: NewStoreMetrics(registerer),
		codec:   newCodec[T](),
		dir:     dir,
		pool:    NewBytesPool(int(opts.Layout.SlotBytes())),
		cache:   newSlotCache[T](opts.CacheSlots),
	}

	level.Debug(logger).Log("msg", "store created", "dir", opts.Dir, "block_size", s.layout.BlockSize, "slot_size", s.layout.SlotSize)

	return s, nil
}

func (s *Store[T]) ID() string { return s.opts.ID }

func (s *Store[T]) Dir() string { return s.opts.Dir }

func (s *Store[T]) Layout() Layout { return s.layout }

// Count returns the number of samples appended so far. Every index below
// the returned value is readable. After Dispose it keeps returning the
// count reached at disposal, although no sample can be read anymore.
func (s *Store[T]) Count() int64 { return s.count.Load() }

// Append stores v as the next sample. It is visible to reads as soon as
// Append returns. Append must only be called from one goroutine at a time.
func (s *Store[T]) Append(v T) error {
	n := s.count.Load()
	pos := s.layout.Locate(n)

	if pos.Block == 0 && pos.Offset == 0 {
		if err := s.addSlot(pos.Slot); err != nil {
			return err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.disposed.Load() {
		return ErrDisposed
	}

	sl := s.slots[pos.Slot]

	blk := sl.blocks[pos.Block]
	if blk == nil {
		if err := s.reserve(s.layout.BlockBytes()); err != nil {
			return errors.Wrapf(err, "allocate block %d of slot %d", pos.Block, pos.Slot)
		}
		blk = make([]T, s.layout.BlockSize)
		sl.blocks[pos.Block] = blk
	}

	blk[pos.Offset] = v

	if pos.Offset == s.layout.BlockSize-1 && pos.Block == s.layout.BlocksPerSlot()-1 {
		s.seal(sl)
	}

	s.count.Store(n + 1)
	s.metrics.samplesAppended.Inc()

	return nil
}

// AppendBatch appends vs in order and returns how many were stored.
func (s *Store[T]) AppendBatch(vs []T) (int, error) {
	for i, v := range vs {
		if err := s.Append(v); err != nil {
			return i, err
		}
	}
	return len(vs), nil
}

func (s *Store[T]) addSlot(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed.Load() {
		return ErrDisposed
	}

	if int64(len(s.slots)) > id {
		return nil
	}

	s.slots = append(s.slots, newSlot[T](id, s.layout))
	s.metrics.residentSlots.Inc()

	return nil
}

// reserve accounts for n more bytes of block memory.
func (s *Store[T]) reserve(n int64) error {
	if err := s.fits(n); err != nil {
		return err
	}
	s.resident.Add(n)
	return nil
}

func (s *Store[T]) fits(n int64) error {
	if s.opts.MaxResidentBytes > 0 && s.resident.Load()+n > s.opts.MaxResidentBytes {
		return errors.Wrapf(ErrOutOfStorage, "resident memory limit %d bytes reached", s.opts.MaxResidentBytes)
	}
	return nil
}

// canAppend returns the error the next Append would fail with, without
// storing anything. Only meaningful from the producer goroutine.
func (s *Store[T]) canAppend() error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	if s.layout.Locate(s.count.Load()).Offset == 0 {
		return s.fits(s.layout.BlockBytes())
	}
	return nil
}

func (s *Store[T]) seal(sl *slot[T]) {
	sl.mu.Lock()
	sl.state = slotSealed
	sl.mu.Unlock()

	s.metrics.slotsSealed.Inc()
	level.Debug(s.logger).Log("msg", "slot sealed", "slot", sl.id)
}

// slotByID returns the slot with the given id, or nil after Dispose.
func (s *Store[T]) slotByID(id int64) *slot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id >= int64(len(s.slots)) {
		return nil
	}
	return s.slots[id]
}

func (s *Store[T]) snapshot() []*slot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]*slot[T](nil), s.slots...)
}
