// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import "sync/atomic"

// counterStore is the privatized counter set of one group.
type counterStore interface {
	// channel returns the counters of active channel ch.
	channel(ch int) []uint32

	// local reports whether the counters live in the group arena.
	local() bool
}

// splitChannels cuts words into consecutive per-channel slices.
func splitChannels(words []uint32, bins []int) [][]uint32 {
	out := make([][]uint32, len(bins))
	off := 0
	for ch, n := range bins {
		out[ch] = words[off : off+n : off+n]
		off += n
	}
	return out
}

// localCounters lives in the TagCounters region of the group arena.
type localCounters struct {
	channels [][]uint32
}

func newLocalCounters(a *Arena, bins []int, total int) localCounters {
	return localCounters{channels: splitChannels(a.Reserve(TagCounters, total), bins)}
}

func (c localCounters) channel(ch int) []uint32 { return c.channels[ch] }
func (localCounters) local() bool                { return true }

// globalCounters is the group's slice of the host privatized buffer,
// starting at ordinal × Σ bins. No other group touches it.
type globalCounters struct {
	channels [][]uint32
}

func newGlobalCounters(buf []uint32, ordinal int, bins []int, total int) globalCounters {
	base := ordinal * total
	return globalCounters{channels: splitChannels(buf[base:base+total], bins)}
}

func (c globalCounters) channel(ch int) []uint32 { return c.channels[ch] }
func (globalCounters) local() bool                { return false }

// InitBinCounters zeroes the group's privatized counters, lane-strided,
// then waits for the whole group. Global counters may hold a previous
// launch's leftovers; they are zeroed all the same.
func (e *Engine[S]) InitBinCounters(lane int) {
	lanes := e.policy.Lanes
	for ch := range e.activeChannels {
		c := e.store.channel(ch)
		for i := lane; i < len(c); i += lanes {
			atomic.StoreUint32(&c[i], 0)
		}
	}
	e.group.Barrier.WaitThen(e.enterAccumulate)
}

// enterAccumulate and enterMerge run in the last lane to reach the
// barrier that opens the phase.
func (e *Engine[S]) enterAccumulate() { e.group.Arena.SetPhase(PhaseAccumulate) }
func (e *Engine[S]) enterMerge()      { e.group.Arena.SetPhase(PhaseMerge) }

// StoreOutput merges the group's privatized counters into the output.
//
// After a barrier every lane walks its stride of each channel's privatized
// bins and adds nonzero counts to the output bin chosen by the channel's
// output decoder. Bins the decoder rejects are dropped.
func (e *Engine[S]) StoreOutput(lane int) {
	e.group.Barrier.WaitThen(e.enterMerge)
	lanes := e.policy.Lanes
	for ch := range e.activeChannels {
		priv := e.store.channel(ch)
		out := e.output[ch]
		dec := e.outputDec[ch]
		for i := lane; i < len(priv); i += lanes {
			n := atomic.LoadUint32(&priv[i])
			if n == 0 {
				continue
			}
			b, ok := dec.Bin(i)
			if !ok {
				continue
			}
			atomic.AddUint32(&out[b], n)
		}
	}
}
