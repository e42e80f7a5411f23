// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package decode

// Value uses the sample value itself as the privatized bin.
//
// It is the privatized stage of the narrow-sample fast path: 8-bit samples
// are counted per value into 256 privatized bins, and the requested binning
// is applied once per bin at merge time through a [Remap].
type Value[S Number] struct {
	bins int
}

// NewValue returns a pass-through operator over bins distinct values.
func NewValue[S Number](bins int) Value[S] {
	return Value[S]{bins: bins}
}

// Bins returns the number of bins.
func (v Value[S]) Bins() int { return v.bins }

// Bin returns int(sample) when it lies in [0, Bins()).
func (v Value[S]) Bin(sample S) (int, bool) {
	if !(sample >= 0) {
		return -1, false
	}
	b := int(sample)
	if b >= v.bins {
		return -1, false
	}
	return b, true
}

// Remap is an output operator backed by a lookup table. Entry i is the
// output bin of privatized bin i, or -1 when the bin is dropped.
type Remap struct {
	table []int
}

// NewRemap precomputes dec for every sample value 0..n-1.
func NewRemap[S Number](n int, dec Privatized[S]) Remap {
	table := make([]int, n)
	for i := range table {
		b, ok := dec.Bin(S(i))
		if !ok {
			b = -1
		}
		table[i] = b
	}
	return Remap{table: table}
}

// Bin returns the output bin of privatized bin privatized.
func (r Remap) Bin(privatized int) (int, bool) {
	if privatized < 0 || privatized >= len(r.table) {
		return -1, false
	}
	b := r.table[privatized]
	return b, b >= 0
}

// Table returns a copy of the lookup table.
func (r Remap) Table() []int {
	out := make([]int, len(r.table))
	copy(out, r.table)
	return out
}
