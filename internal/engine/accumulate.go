// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"sync/atomic"

	"github.com/gogpu/blockhist/decode"
)

// accumulator adds a lane's loaded pixels to the privatized counters.
type accumulator[S any] interface {
	accumulate(l *Lane[S], pixels int)
}

// direct adds 1 per valid sample.
type direct[S any] struct {
	store    counterStore
	decoders []decode.Privatized[S]
	channels int
}

func (a direct[S]) accumulate(l *Lane[S], pixels int) {
	for p := range pixels {
		px := l.items[p*a.channels:]
		for ch, dec := range a.decoders {
			if b, ok := dec.Bin(px[ch]); ok {
				atomic.AddUint32(&a.store.channel(ch)[b], 1)
			}
		}
	}
}

// runLength decodes a channel of the lane's pixels first, then adds each
// run of equal bins with one atomic add. Rejected samples end the current
// run and are not counted.
type runLength[S any] struct {
	store    counterStore
	decoders []decode.Privatized[S]
	channels int
}

func (a runLength[S]) accumulate(l *Lane[S], pixels int) {
	bins := l.bins[:pixels]
	for ch, dec := range a.decoders {
		for p := range bins {
			b, ok := dec.Bin(l.items[p*a.channels+ch])
			if !ok {
				b = -1
			}
			bins[p] = b
		}
		flushRuns(a.store.channel(ch), bins)
	}
}

// flushRuns adds every maximal run of equal bins as a single count.
// Negative bins are never counted.
func flushRuns(counters []uint32, bins []int) {
	cur, run := -1, uint32(0)
	for _, b := range bins {
		if b != cur {
			if cur >= 0 {
				atomic.AddUint32(&counters[cur], run)
			}
			cur, run = b, 0
		}
		run++
	}
	if cur >= 0 && run > 0 {
		atomic.AddUint32(&counters[cur], run)
	}
}

func newAccumulator[S any](mode Accumulation, store counterStore, decoders []decode.Privatized[S], channels int) accumulator[S] {
	if mode == AccumulationRunLength {
		return runLength[S]{store, decoders, channels}
	}
	return direct[S]{store, decoders, channels}
}
