// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"math/bits"
	"unsafe"
)

// loader fills a lane's items with its share of one tile.
//
// Items are blocked: lane t owns pixels [t*PixelsPerLane, (t+1)*PixelsPerLane)
// of the tile, and pixel p channel c lands in items[p*channels+c]. load
// returns the number of valid pixels; items past them are left untouched
// and must not be binned.
type loader[S any] interface {
	load(items []S, tileOffset, lane, validSamples int) int
}

// laneSpan returns the first sample of the lane inside the tile and the
// number of samples it owns when the tile is full.
func laneSpan(lane, pixelsPerLane, channels int) (start, n int) {
	n = pixelsPerLane * channels
	return lane * n, n
}

// partialPixels returns how many whole pixels of a lane span lie below
// validSamples.
func partialPixels(start, n, validSamples, channels int) int {
	rem := min(validSamples-start, n)
	if rem <= 0 {
		return 0
	}
	return rem / channels
}

// fullAligned copies the lane span straight from the native slice.
type fullAligned[S any] struct {
	samples       []S
	pixelsPerLane int
	channels      int
}

func (l fullAligned[S]) load(items []S, tileOffset, lane, _ int) int {
	start, n := laneSpan(lane, l.pixelsPerLane, l.channels)
	base := tileOffset + start
	copy(items[:n], l.samples[base:base+n])
	return l.pixelsPerLane
}

// fullUnaligned reads the lane span one sample at a time.
type fullUnaligned[S any] struct {
	stream        Stream[S]
	pixelsPerLane int
	channels      int
}

func (l fullUnaligned[S]) load(items []S, tileOffset, lane, _ int) int {
	start, n := laneSpan(lane, l.pixelsPerLane, l.channels)
	base := tileOffset + start
	for i := range n {
		items[i] = l.stream.At(base + i)
	}
	return l.pixelsPerLane
}

// partialAligned copies only the valid whole pixels of the lane span.
type partialAligned[S any] struct {
	samples       []S
	pixelsPerLane int
	channels      int
}

func (l partialAligned[S]) load(items []S, tileOffset, lane, validSamples int) int {
	start, n := laneSpan(lane, l.pixelsPerLane, l.channels)
	pixels := partialPixels(start, n, validSamples, l.channels)
	if pixels == 0 {
		// The span may start past the end of the stream.
		return 0
	}
	m := pixels * l.channels
	base := tileOffset + start
	copy(items[:m], l.samples[base:base+m])
	return pixels
}

// partialUnaligned reads only the valid whole pixels of the lane span.
type partialUnaligned[S any] struct {
	stream        Stream[S]
	pixelsPerLane int
	channels      int
}

func (l partialUnaligned[S]) load(items []S, tileOffset, lane, validSamples int) int {
	start, n := laneSpan(lane, l.pixelsPerLane, l.channels)
	pixels := partialPixels(start, n, validSamples, l.channels)
	base := tileOffset + start
	for i := range pixels * l.channels {
		items[i] = l.stream.At(base + i)
	}
	return pixels
}

// vectorWidth is the number of samples one vector load moves: a quad for
// single-channel input, one pixel otherwise.
func vectorWidth(channels int) int {
	if channels == 1 {
		return 4
	}
	return channels
}

// canLoadAligned reports whether the launch may take the aligned path.
//
// The stream must expose its samples, the slice must start on a vector
// boundary, and every lane span must start on one too: the row stride and
// the lane span must be whole vectors.
func canLoadAligned[S any](stream Stream[S], channels, pixelsPerLane, rowStride int) bool {
	ns, ok := stream.(NativeStream[S])
	if !ok {
		return false
	}
	samples := ns.Samples()
	if len(samples) == 0 {
		return false
	}
	vec := vectorWidth(channels)
	var zero S
	vecBytes := uintptr(vec) * unsafe.Sizeof(zero)
	if vecBytes == 0 || bits.OnesCount64(uint64(vecBytes)) != 1 {
		return false
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(samples)))
	if addr%vecBytes != 0 {
		return false
	}
	return rowStride%vec == 0 && (pixelsPerLane*channels)%vec == 0
}

// newLoaders returns the full and partial loader for a launch.
func newLoaders[S any](stream Stream[S], aligned bool, pixelsPerLane, channels int) (full, partial loader[S]) {
	if aligned {
		samples := stream.(NativeStream[S]).Samples()
		return fullAligned[S]{samples, pixelsPerLane, channels},
			partialAligned[S]{samples, pixelsPerLane, channels}
	}
	return fullUnaligned[S]{stream, pixelsPerLane, channels},
		partialUnaligned[S]{stream, pixelsPerLane, channels}
}
