package storage

// envelope reduces a run of samples to the minimum and maximum of every
// bucket of width samples. Buckets start at the first sample fed in.
type envelope struct {
	width  int64
	filled int64
	lo, hi float64
	out    []float64
}

func newEnvelope(n int64, resolution int) *envelope {
	width := int64(1) << min(resolution, 62)
	buckets := (n + width - 1) / width
	return &envelope{width: width, out: make([]float64, 0, 2*buckets)}
}

func (e *envelope) add(v float64) {
	if e.filled == 0 {
		e.lo, e.hi = v, v
	} else {
		e.lo = min(e.lo, v)
		e.hi = max(e.hi, v)
	}

	e.filled++
	if e.filled == e.width {
		e.flush()
	}
}

func (e *envelope) flush() {
	e.out = append(e.out, e.lo, e.hi)
	e.filled = 0
}

func (e *envelope) finish() []float64 {
	if e.filled > 0 {
		e.flush()
	}
	return e.out
}

// Downsample applies the envelope used by ReadRange at resolution > 0 to
// an in-memory series. For each bucket of 1<<resolution values it emits
// the bucket minimum followed by its maximum; a trailing partial bucket is
// reduced the same way. Resolution 0 returns a copy of values.
func Downsample(values []float64, resolution int) []float64 {
	if resolution <= 0 {
		return append([]float64(nil), values...)
	}

	env := newEnvelope(int64(len(values)), resolution)
	for _, v := range values {
		env.add(v)
	}
	return env.finish()
}
