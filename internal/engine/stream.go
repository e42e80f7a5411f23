// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

// Stream is the sample input of a launch.
//
// Samples are addressed by flat offset; pixel p channel c of row y is at
// y*RowStrideSamples + p*Channels + c. At must be safe for concurrent use.
type Stream[S any] interface {
	Len() int
	At(i int) S
}

// NativeStream is a Stream backed by a contiguous slice. Exposing it lets
// the loader copy whole lane spans instead of calling At per sample.
type NativeStream[S any] interface {
	Stream[S]
	Samples() []S
}

// SliceStream is the NativeStream over a plain slice.
type SliceStream[S any] []S

func (s SliceStream[S]) Len() int     { return len(s) }
func (s SliceStream[S]) At(i int) S   { return s[i] }
func (s SliceStream[S]) Samples() []S { return s }

// FuncStream is a Stream computed on demand.
type FuncStream[S any] struct {
	N  int
	Fn func(i int) S
}

func (s FuncStream[S]) Len() int   { return s.N }
func (s FuncStream[S]) At(i int) S { return s.Fn(i) }
