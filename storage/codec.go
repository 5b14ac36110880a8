package storage

import (
	"encoding/binary"
	"math"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// Sample is the set of value types a Store can hold: int64 timestamps or
// float64 channel values.
type Sample interface {
	int64 | float64
}

// codec converts samples to and from their 8 byte little-endian slot file
// representation. int64 is stored as-is, float64 as its IEEE-754 bits.
type codec[T Sample] struct {
	encode func(dst []byte, src []T)
	decode func(dst []T, src []byte)
}

func newCodec[T Sample]() codec[T] {
	var zero T
	if _, ok := any(zero).(float64); ok {
		return codec[T]{
			encode: func(dst []byte, src []T) {
				for i, v := range src {
					binary.LittleEndian.PutUint64(dst[i*sampleBytes:], math.Float64bits(float64(v)))
				}
			},
			decode: func(dst []T, src []byte) {
				for i := range dst {
					dst[i] = T(math.Float64frombits(binary.LittleEndian.Uint64(src[i*sampleBytes:])))
				}
			},
		}
	}

	return codec[T]{
		encode: func(dst []byte, src []T) {
			for i, v := range src {
				binary.LittleEndian.PutUint64(dst[i*sampleBytes:], uint64(int64(v)))
			}
		},
		decode: func(dst []T, src []byte) {
			for i := range dst {
				dst[i] = T(int64(binary.LittleEndian.Uint64(src[i*sampleBytes:])))
			}
		},
	}
}

// packSlot returns the file content for a raw slot image.
func packSlot(raw []byte, compress bool) []byte {
	if !compress {
		return raw
	}
	return snappy.Encode(nil, raw)
}

// unpackSlot reverses packSlot and checks the image has the size the layout
// dictates.
func unpackSlot(data []byte, compress bool, want int64) ([]byte, error) {
	raw := data
	if compress {
		var err error
		if raw, err = snappy.Decode(nil, data); err != nil {
			return nil, errors.Wrap(err, "decode slot")
		}
	}
	if int64(len(raw)) != want {
		return nil, errors.Errorf("invalid slot size: expected %d, got %d", want, len(raw))
	}
	return raw, nil
}
