package main

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/time/rate"

	"strata/config"
	"strata/storage"
)

// acquire simulates a device producing rows at the configured rate. It is
// the only goroutine appending to rec.
func acquire(ctx context.Context, logger log.Logger, rec *storage.Recording, opts config.AcquisitionOptions, flush config.FlushOptions) {
	burst := max(opts.Burst, 1)
	limiter := rate.NewLimiter(rate.Limit(opts.SampleRate), burst)

	values := make([]float64, rec.Channels())
	now := time.Now()

	for n := int64(0); opts.Samples == 0 || n < opts.Samples; {
		if err := limiter.WaitN(ctx, burst); err != nil {
			break
		}

		for i := 0; i < burst && (opts.Samples == 0 || n < opts.Samples); i++ {
			ts := time.Now().UnixNano()
			for ch := range values {
				phase := float64(n) / opts.SampleRate * float64(ch+1)
				values[ch] = math.Sin(2*math.Pi*phase) + rand.NormFloat64()*0.01
			}

			if err := rec.AppendRow(ts, values...); err != nil {
				level.Error(logger).Log("msg", "error appending row", "row", n, "err", err)
				return
			}
			n++

			if flush.EverySamples > 0 && n%flush.EverySamples == 0 {
				if err := rec.MoveOldValuesToDisk(); err != nil {
					level.Error(logger).Log("msg", "error moving old values to disk", "err", err)
				}
			}
		}
	}

	logger.Log("msg", "acquisition stopped", "rows", rec.Count(), "since", time.Since(now))
}

// flushLoop moves sealed slots to disk on a fixed interval.
func flushLoop(ctx context.Context, logger log.Logger, rec *storage.Recording, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rec.MoveOldValuesToDisk(); err != nil {
				level.Error(logger).Log("msg", "error moving old values to disk", "err", err)
			}
		}
	}
}

// renderLoop reads the latest window of every channel the way a plot
// would, clamping the requested range to what has been recorded.
func renderLoop(ctx context.Context, logger log.Logger, rec *storage.Recording, opts config.RenderOptions) {
	if opts.Interval <= 0 || opts.Window <= 0 {
		return
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		count := rec.Count()
		if count == 0 {
			continue
		}
		start := max(0, count-opts.Window)

		points := 0
		for i := 0; i < rec.Channels(); i++ {
			out, err := rec.Channel(i).ReadRange(start, count-1, opts.Resolution)
			if err != nil {
				level.Error(logger).Log("msg", "error reading channel window", "channel", i, "err", err)
				continue
			}
			points += len(out)
		}

		level.Debug(logger).Log("msg", "window rendered", "start", start, "end", count-1, "points", points)
	}
}
