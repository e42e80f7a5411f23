// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package decode

import "sort"

// Range bins samples by caller-supplied boundaries.
//
// levels must be sorted ascending. Bin i holds samples in
// [levels[i], levels[i+1]); samples below levels[0] or at or above the last
// level are rejected.
type Range[S Number] struct {
	levels []S
}

// NewRange returns a range binning operator. The levels slice is retained.
// It panics if there are fewer than 2 levels or they are not ascending.
func NewRange[S Number](levels []S) Range[S] {
	if len(levels) < 2 {
		panic("decode: NewRange needs at least 2 levels")
	}
	for i := 1; i < len(levels); i++ {
		if !(levels[i-1] < levels[i]) {
			panic("decode: NewRange levels must be strictly ascending")
		}
	}
	return Range[S]{levels: levels}
}

// Bins returns the number of bins.
func (r Range[S]) Bins() int { return len(r.levels) - 1 }

// Bin returns the bin of sample.
func (r Range[S]) Bin(sample S) (int, bool) {
	n := len(r.levels)
	if !(sample >= r.levels[0] && sample < r.levels[n-1]) {
		return -1, false
	}
	// First level strictly greater than sample, minus one.
	i := sort.Search(n, func(i int) bool { return r.levels[i] > sample })
	return i - 1, true
}
