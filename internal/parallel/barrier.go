// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"errors"
	"sync"
)

// ErrBarrierBroken is the panic value Wait raises once the barrier has been
// broken. Lanes recover it and unwind; it is never the root cause.
var ErrBarrierBroken = errors.New("parallel: barrier broken")

// Barrier is a reusable barrier for a fixed number of lanes.
//
// Every lane of the group must call Wait the same number of times. Wait
// returns once all lanes have arrived, and everything a lane wrote before
// arriving is visible to every lane after it returns.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	lanes   int
	arrived int
	gen     uint64
	broken  bool
}

// NewBarrier returns a barrier for lanes participants.
// It panics if lanes < 1.
func NewBarrier(lanes int) *Barrier {
	if lanes < 1 {
		panic("parallel: barrier needs at least one lane")
	}
	b := &Barrier{lanes: lanes}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Lanes returns the number of participants.
func (b *Barrier) Lanes() int { return b.lanes }

// Wait blocks until all lanes have called Wait for the current generation.
// It panics with ErrBarrierBroken if the barrier is or becomes broken.
func (b *Barrier) Wait() { b.WaitThen(nil) }

// WaitThen is Wait, except that the last lane to arrive runs action before
// any lane is released. Every lane of a generation must pass the same
// action; a nil action does nothing.
func (b *Barrier) WaitThen(action func()) {
	b.mu.Lock()
	if b.broken {
		b.mu.Unlock()
		panic(ErrBarrierBroken)
	}
	gen := b.gen
	b.arrived++
	if b.arrived == b.lanes {
		b.arrived = 0
		if action != nil {
			// Peers are parked on gen, which has not moved yet.
			b.mu.Unlock()
			action()
			b.mu.Lock()
		}
		b.gen++
		b.mu.Unlock()
		b.cond.Broadcast()
		return
	}
	for gen == b.gen && !b.broken {
		b.cond.Wait()
	}
	broken := gen == b.gen && b.broken
	b.mu.Unlock()
	if broken {
		panic(ErrBarrierBroken)
	}
}

// Break releases every waiting lane with ErrBarrierBroken and makes all
// later Wait calls do the same. A lane that fails mid-phase breaks the
// barrier so its peers do not wait forever.
func (b *Barrier) Break() {
	b.mu.Lock()
	b.broken = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Generation returns how many times the barrier has opened.
func (b *Barrier) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}
