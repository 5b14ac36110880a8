package storage

import (
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Recording keeps one acquisition session: a timestamp store and one value
// store per channel, all sharing a cache directory and layout. Row i is
// made of sample i of every store.
type Recording struct {
	opts       Options
	timestamps *Store[int64]
	channels   []*Store[float64]

	// torn is set once a row was only partly appended.
	torn error
}

// NewRecording creates the stores of a session with the given number of
// channels. Store ids are derived from opts.ID.
func NewRecording(opts Options, channels int) (*Recording, error) {
	if channels < 0 {
		return nil, errors.Errorf("invalid channel count %d", channels)
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}

	r := &Recording{opts: opts}

	tsOpts := opts
	tsOpts.ID = opts.ID + "-ts"
	ts, err := New[int64](tsOpts)
	if err != nil {
		return nil, errors.Wrap(err, "create timestamp store")
	}
	r.timestamps = ts

	for i := 0; i < channels; i++ {
		chOpts := opts
		chOpts.ID = fmt.Sprintf("%s-ch%02d", opts.ID, i)

		ch, err := New[float64](chOpts)
		if err != nil {
			r.Dispose()
			return nil, errors.Wrapf(err, "create channel %d store", i)
		}
		r.channels = append(r.channels, ch)
	}

	return r, nil
}

func (r *Recording) ID() string { return r.opts.ID }

func (r *Recording) Timestamps() *Store[int64] { return r.timestamps }

func (r *Recording) Channels() int { return len(r.channels) }

func (r *Recording) Channel(i int) *Store[float64] { return r.channels[i] }

// Count returns the number of complete rows.
func (r *Recording) Count() int64 {
	n := r.timestamps.Count()
	for _, ch := range r.channels {
		n = min(n, ch.Count())
	}
	return n
}

// AppendRow appends one timestamp and one value per channel. Every store
// is checked before anything is written, so a rejected row leaves all
// stores unchanged. If a store still fails halfway through, the recording
// is marked torn and rejects every later row.
func (r *Recording) AppendRow(ts int64, values ...float64) error {
	if len(values) != len(r.channels) {
		return errors.Errorf("row has %d values, recording has %d channels", len(values), len(r.channels))
	}
	if r.torn != nil {
		return errors.Wrap(r.torn, "recording has a partial row")
	}

	if err := r.timestamps.canAppend(); err != nil {
		return err
	}
	for i, ch := range r.channels {
		if err := ch.canAppend(); err != nil {
			return errors.Wrapf(err, "channel %d", i)
		}
	}

	if err := r.timestamps.Append(ts); err != nil {
		return err
	}
	for i, v := range values {
		if err := r.channels[i].Append(v); err != nil {
			r.torn = errors.Wrapf(err, "channel %d", i)
			level.Error(r.timestamps.logger).Log("msg", "partial row appended", "row", r.timestamps.Count()-1, "channel", i, "err", err)
			return r.torn
		}
	}
	return nil
}

// MoveOldValuesToDisk flushes every store of the recording. All stores are
// attempted; the first failure is returned.
func (r *Recording) MoveOldValuesToDisk() error {
	var firstErr error

	if err := r.timestamps.MoveOldValuesToDisk(); err != nil {
		firstErr = errors.Wrap(err, "flush timestamps")
	}
	for i, ch := range r.channels {
		if err := ch.MoveOldValuesToDisk(); err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "flush channel %d", i)
			} else {
				level.Error(r.timestamps.logger).Log("msg", "error flushing channel", "channel", i, "err", err)
			}
		}
	}
	return firstErr
}

// Dispose tears down every store of the recording. Channels go first so
// the timestamp store, which may have created the cache directory, can
// remove it once it is empty.
func (r *Recording) Dispose() error {
	var firstErr error

	for i, ch := range r.channels {
		if err := ch.Dispose(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "dispose channel %d", i)
		}
	}
	if r.timestamps != nil {
		if err := r.timestamps.Dispose(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "dispose timestamps")
		}
	}
	return firstErr
}

// Stats returns the stats of the timestamp store followed by each channel.
func (r *Recording) Stats() []Stats {
	out := make([]Stats, 0, 1+len(r.channels))
	out = append(out, r.timestamps.Stats())
	for _, ch := range r.channels {
		out = append(out, ch.Stats())
	}
	return out
}
