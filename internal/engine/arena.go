// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/blockhist/internal/cache"
)

// Tag names a region of a group arena.
type Tag uint8

const (
	// TagCounters holds privatized counters under local placement.
	TagCounters Tag = iota

	// TagBroadcast holds the work-stealing broadcast slots.
	TagBroadcast

	tagCount
)

// String returns the tag name.
func (t Tag) String() string {
	switch t {
	case TagCounters:
		return "Counters"
	case TagBroadcast:
		return "Broadcast"
	default:
		return unknownStr
	}
}

// Phase is the stage of a launch that currently owns the arena.
// Ownership changes only at group barriers.
type Phase uint32

const (
	PhaseIdle Phase = iota
	PhaseInit
	PhaseAccumulate
	PhaseMerge
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseInit:
		return "Init"
	case PhaseAccumulate:
		return "Accumulate"
	case PhaseMerge:
		return "Merge"
	default:
		return unknownStr
	}
}

type region struct {
	off, n int
}

// Arena is the group-local scratch memory of one execution group.
//
// It is a fixed number of 32-bit words carved into tagged regions at group
// construction, while the arena is idle. Regions never overlap. Once the
// group is built the phase moves Init, Accumulate, Merge; each move happens
// inside the group barrier that separates the two phases, so every lane
// released by that barrier observes the new phase.
type Arena struct {
	words   []uint32
	used    int
	regions [tagCount]region
	phase   atomic.Uint32
}

// NewArena returns an arena of capacityBytes, rounded down to whole words.
func NewArena(capacityBytes int) *Arena {
	return &Arena{words: make([]uint32, max(capacityBytes, 0)/4)}
}

// CapacityBytes returns the arena size.
func (a *Arena) CapacityBytes() int { return len(a.words) * 4 }

// FreeWords returns the words not yet reserved.
func (a *Arena) FreeWords() int { return len(a.words) - a.used }

// Reserve carves n words for tag. The region is zeroed. Reserving outside
// PhaseIdle, twice, or past capacity panics: the host sizes arenas before
// launch.
func (a *Arena) Reserve(tag Tag, n int) []uint32 {
	if p := a.Phase(); p != PhaseIdle {
		panic(fmt.Sprintf("engine: arena region %v reserved during %v", tag, p))
	}
	if a.regions[tag].n != 0 {
		panic(fmt.Sprintf("engine: arena region %v reserved twice", tag))
	}
	if n > a.FreeWords() {
		panic(fmt.Sprintf("engine: arena region %v needs %d words, %d free", tag, n, a.FreeWords()))
	}
	r := region{off: a.used, n: n}
	a.used += n
	a.regions[tag] = r
	s := a.words[r.off : r.off+n : r.off+n]
	clear(s)
	return s
}

// Phase returns the current phase.
func (a *Arena) Phase() Phase { return Phase(a.phase.Load()) }

// SetPhase records the phase that owns the arena from now on.
func (a *Arena) SetPhase(p Phase) { a.phase.Store(uint32(p)) }

// Reset drops every region and returns the arena to PhaseIdle.
func (a *Arena) Reset() {
	a.used = 0
	a.regions = [tagCount]region{}
	a.SetPhase(PhaseIdle)
}

// arenaPool recycles arenas of one capacity across groups and launches.
type arenaPool struct {
	capacity int
	pool     sync.Pool
}

func newArenaPool(capacityBytes int) *arenaPool {
	p := &arenaPool{capacity: capacityBytes}
	p.pool.New = func() any { return NewArena(capacityBytes) }
	return p
}

// get returns an empty arena.
func (p *arenaPool) get() *Arena {
	a := p.pool.Get().(*Arena)
	a.Reset()
	return a
}

// put returns an arena for reuse. Nil is a no-op.
func (p *arenaPool) put(a *Arena) {
	if a == nil || a.CapacityBytes() != p.capacity/4*4 {
		return
	}
	p.pool.Put(a)
}

// arenaPools holds one pool per arena capacity. Capacities come from caller
// policies, so the set is bounded by LRU eviction.
var arenaPools = cache.NewSharded[int, *arenaPool](4, cache.IntHasher)

// arenasFor returns the shared pool for arenas of capacityBytes.
func arenasFor(capacityBytes int) *arenaPool {
	return arenaPools.GetOrCreate(capacityBytes, func() *arenaPool {
		return newArenaPool(capacityBytes)
	})
}
