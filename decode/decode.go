// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package decode provides the bin mapping operators used by blockhist.
//
// A histogram launch runs two decode stages per channel:
//
//   - a [Privatized] operator maps every sample to a privatized bin, the
//     counter a group accumulates into while it consumes tiles;
//   - an [Output] operator maps every privatized bin to the final output bin
//     when the group merges its counters into the shared histogram.
//
// Either stage may reject its input by returning ok == false; rejected
// samples and bins are never counted. Returning ok == true with a bin outside
// the configured range is a contract violation and fails the launch.
//
// Operators must be safe for concurrent use: every lane of every group calls
// them without synchronization.
package decode

// Number is the set of sample types the built-in operators understand.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint |
		~float32 | ~float64
}

// Privatized maps one sample to a privatized bin.
type Privatized[S any] interface {
	Bin(sample S) (bin int, ok bool)
}

// Output maps a privatized bin to an output bin.
type Output interface {
	Bin(privatized int) (bin int, ok bool)
}

// PrivatizedFunc adapts an ordinary function to the Privatized interface.
type PrivatizedFunc[S any] func(sample S) (int, bool)

// Bin calls f(sample).
func (f PrivatizedFunc[S]) Bin(sample S) (int, bool) { return f(sample) }

// OutputFunc adapts an ordinary function to the Output interface.
type OutputFunc func(privatized int) (int, bool)

// Bin calls f(privatized).
func (f OutputFunc) Bin(privatized int) (int, bool) { return f(privatized) }

// Identity is the pass-through output operator: privatized bin b is output
// bin b. It is the usual choice when both stages use the same binning.
type Identity struct{}

// Bin returns privatized unchanged.
func (Identity) Bin(privatized int) (int, bool) { return privatized, privatized >= 0 }

// isFloat reports whether S is a floating point type.
func isFloat[S Number]() bool {
	return S(1)/S(2) != 0
}
