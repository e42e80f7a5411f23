// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package decode

import (
	"math/bits"

	"github.com/x448/float16"
)

// Even splits [lower, upper) into evenly sized bins.
//
// With levels boundaries there are levels-1 bins. Samples outside
// [lower, upper) are rejected. Integer samples are binned with exact integer
// arithmetic so that bin edges never drift from rounding.
type Even[S Number] struct {
	lower, upper S
	bins         int
	float        bool
	span         uint64  // upper - lower, integer samples only
	scale        float64 // bins / (upper - lower), float samples only
}

// NewEven returns an even binning operator with levels boundaries between
// lower (inclusive) and upper (exclusive).
// It panics if levels < 2 or lower >= upper.
func NewEven[S Number](levels int, lower, upper S) Even[S] {
	if levels < 2 {
		panic("decode: NewEven needs at least 2 levels")
	}
	if !(lower < upper) {
		panic("decode: NewEven needs lower < upper")
	}
	e := Even[S]{
		lower: lower,
		upper: upper,
		bins:  levels - 1,
		float: isFloat[S](),
	}
	if e.float {
		e.scale = float64(e.bins) / (float64(upper) - float64(lower))
	} else {
		e.span = distance(lower, upper)
	}
	return e
}

// Bins returns the number of bins.
func (e Even[S]) Bins() int { return e.bins }

// Bin returns the bin of sample.
func (e Even[S]) Bin(sample S) (int, bool) {
	// NaN fails both comparisons.
	if !(sample >= e.lower && sample < e.upper) {
		return -1, false
	}
	if e.float {
		b := int((float64(sample) - float64(e.lower)) * e.scale)
		// Rounding can push samples just below upper into the next bin.
		if b >= e.bins {
			b = e.bins - 1
		}
		return b, true
	}
	hi, lo := bits.Mul64(distance(e.lower, sample), uint64(e.bins))
	q, _ := bits.Div64(hi, lo, e.span)
	return int(q), true
}

// distance returns b - a for integer samples with a <= b. The subtraction
// wraps in 64 bits, which is exact for every integer width including uint64.
func distance[S Number](a, b S) uint64 {
	return uint64(int64(b) - int64(a))
}

// EvenHalf is [Even] for IEEE 754 half precision samples.
type EvenHalf struct {
	lower, upper float32
	bins         int
	scale        float32
}

// NewEvenHalf returns an even binning operator over half precision samples.
// It panics if levels < 2 or lower >= upper.
func NewEvenHalf(levels int, lower, upper float16.Float16) EvenHalf {
	lo, hi := lower.Float32(), upper.Float32()
	if levels < 2 {
		panic("decode: NewEvenHalf needs at least 2 levels")
	}
	if !(lo < hi) {
		panic("decode: NewEvenHalf needs lower < upper")
	}
	return EvenHalf{
		lower: lo,
		upper: hi,
		bins:  levels - 1,
		scale: float32(levels-1) / (hi - lo),
	}
}

// Bins returns the number of bins.
func (e EvenHalf) Bins() int { return e.bins }

// Bin returns the bin of sample.
func (e EvenHalf) Bin(sample float16.Float16) (int, bool) {
	v := sample.Float32()
	if !(v >= e.lower && v < e.upper) {
		return -1, false
	}
	b := int((v - e.lower) * e.scale)
	if b >= e.bins {
		b = e.bins - 1
	}
	return b, true
}
