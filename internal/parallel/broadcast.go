// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

// BroadcastWords is the scratch size a Broadcast needs, in 32-bit words.
const BroadcastWords = 4

// Broadcast passes one int from a single writer lane to the whole group.
//
// The value lives in group-local scratch words, double buffered by round
// parity. Protocol for round r:
//
//	if lane == 0 {
//	    bc.Publish(r, v)
//	}
//	barrier.Wait()
//	v = bc.Read(r)
//
// Round r+1 writes the other slot, and round r+2 can only reuse this slot
// after the writer has passed the round r+1 barrier, which every reader
// reaches only after reading round r. One barrier per round is enough.
type Broadcast struct {
	words []uint32
}

// NewBroadcast returns a broadcast over words, which must hold at least
// BroadcastWords entries and is owned by the broadcast afterwards.
func NewBroadcast(words []uint32) Broadcast {
	if len(words) < BroadcastWords {
		panic("parallel: broadcast scratch too small")
	}
	return Broadcast{words: words[:BroadcastWords:BroadcastWords]}
}

// Publish stores v for round.
func (b Broadcast) Publish(round int, v int) {
	i := (round & 1) * 2
	u := uint64(int64(v))
	b.words[i] = uint32(u)
	b.words[i+1] = uint32(u >> 32)
}

// Read loads the value published for round.
func (b Broadcast) Read(round int) int {
	i := (round & 1) * 2
	return int(int64(uint64(b.words[i]) | uint64(b.words[i+1])<<32))
}
