// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

// Placement selects where a group keeps its privatized counters.
type Placement uint8

const (
	// PlacementLocal keeps counters in the group arena.
	PlacementLocal Placement = iota

	// PlacementGlobal keeps counters in the host-owned privatized buffer,
	// in the slice owned by the group ordinal.
	PlacementGlobal

	// PlacementBlended mixes both across the grid: a group uses its arena
	// when ordinal % BlendLocalEvery == 0 and global memory otherwise.
	PlacementBlended
)

// String returns the placement name.
func (p Placement) String() string {
	switch p {
	case PlacementLocal:
		return "Local"
	case PlacementGlobal:
		return "Global"
	case PlacementBlended:
		return "Blended"
	default:
		return unknownStr
	}
}

// Scheduling selects how tiles of a row are distributed across groups.
type Scheduling uint8

const (
	// SchedulingEvenShare stripes tiles statically: group g takes tiles
	// g, g+G, g+2G, ...
	SchedulingEvenShare Scheduling = iota

	// SchedulingWorkStealing takes one static tile per group, then claims
	// further tiles from the row's shared WorkQueue.
	SchedulingWorkStealing
)

// String returns the scheduling name.
func (s Scheduling) String() string {
	switch s {
	case SchedulingEvenShare:
		return "EvenShare"
	case SchedulingWorkStealing:
		return "WorkStealing"
	default:
		return unknownStr
	}
}

// Accumulation selects how a lane adds its samples to the counters.
type Accumulation uint8

const (
	// AccumulationDirect adds 1 per valid sample.
	AccumulationDirect Accumulation = iota

	// AccumulationRunLength adds once per run of equal bins in the lane's
	// samples of a channel.
	AccumulationRunLength
)

// String returns the accumulation name.
func (a Accumulation) String() string {
	switch a {
	case AccumulationDirect:
		return "Direct"
	case AccumulationRunLength:
		return "RunLength"
	default:
		return unknownStr
	}
}

const unknownStr = "Unknown"

// Policy is the tuning of a launch. It is fixed for the whole launch.
type Policy struct {
	// Lanes is the number of lanes per group.
	Lanes int

	// PixelsPerLane is the number of pixels each lane loads per tile.
	PixelsPerLane int

	Placement Placement

	// BlendLocalEvery is the blended split ratio; 2 alternates by parity.
	// Values below 1 are treated as 1 (every group local).
	BlendLocalEvery int

	Scheduling   Scheduling
	Accumulation Accumulation

	// LocalMemoryBytes is the capacity of each group arena.
	LocalMemoryBytes int
}

// TilePixels returns the number of pixels in one tile.
func (p Policy) TilePixels() int {
	return p.Lanes * p.PixelsPerLane
}

// TileSamples returns the number of samples in one tile of pixels with the
// given channel count.
func (p Policy) TileSamples(channels int) int {
	return p.TilePixels() * channels
}

// PreferLocal reports whether the group with the given ordinal keeps its
// counters in the arena.
func (p Policy) PreferLocal(ordinal int) bool {
	switch p.Placement {
	case PlacementLocal:
		return true
	case PlacementBlended:
		return ordinal%max(p.BlendLocalEvery, 1) == 0
	default:
		return false
	}
}

// UsesLocal reports whether any group of a launch may place its counters in
// the arena.
func (p Policy) UsesLocal() bool {
	return p.Placement == PlacementLocal || p.Placement == PlacementBlended
}

// UsesGlobal reports whether any group of a launch of the given size may
// place its counters in the privatized buffer.
func (p Policy) UsesGlobal(groups int) bool {
	switch p.Placement {
	case PlacementGlobal:
		return true
	case PlacementBlended:
		return max(p.BlendLocalEvery, 1) > 1 && groups > 1
	default:
		return false
	}
}
