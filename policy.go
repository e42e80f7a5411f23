// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blockhist

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/blockhist/internal/engine"
	"github.com/gogpu/blockhist/internal/parallel"
)

// Policy is the tuning of a launch. See the engine constants below.
type Policy = engine.Policy

// Placement selects where groups keep privatized counters.
type Placement = engine.Placement

// Scheduling selects how tiles are distributed across groups.
type Scheduling = engine.Scheduling

// Accumulation selects how lanes add samples to counters.
type Accumulation = engine.Accumulation

const (
	PlacementLocal   = engine.PlacementLocal
	PlacementGlobal  = engine.PlacementGlobal
	PlacementBlended = engine.PlacementBlended

	SchedulingEvenShare    = engine.SchedulingEvenShare
	SchedulingWorkStealing = engine.SchedulingWorkStealing

	AccumulationDirect    = engine.AccumulationDirect
	AccumulationRunLength = engine.AccumulationRunLength
)

// Region is the 2-D window of the input to histogram: Rows rows of
// RowPixels pixels, row starts RowStrideSamples samples apart.
type Region = engine.Region

// Stream is a sample input addressed by flat offset.
type Stream[S any] = engine.Stream[S]

// NativeStream is a Stream backed by a slice; the loaders copy from it
// directly when it is suitably aligned.
type NativeStream[S any] = engine.NativeStream[S]

// SliceStream is the NativeStream over a plain slice.
type SliceStream[S any] = engine.SliceStream[S]

// MaxChannels is the largest number of interleaved channels per pixel.
const MaxChannels = 4

// ByteBins is the number of privatized bins of the 8-bit path.
const ByteBins = 256

var deviceLimits = gputypes.DefaultLimits()

// MaxLanes returns the largest lane count a group may have. It matches the
// workgroup invocation limit of the default WebGPU device limits.
func MaxLanes() int {
	return int(deviceLimits.MaxComputeInvocationsPerWorkgroup)
}

// DefaultPolicy returns the policy used when no option overrides it.
//
// The arena capacity is the default WebGPU workgroup storage size, so a
// policy that fits on the CPU also fits a WGSL workgroup.
func DefaultPolicy() Policy {
	return Policy{
		Lanes:            8,
		PixelsPerLane:    32,
		Placement:        PlacementLocal,
		BlendLocalEvery:  2,
		Scheduling:       SchedulingEvenShare,
		Accumulation:     AccumulationRunLength,
		LocalMemoryBytes: int(deviceLimits.MaxComputeWorkgroupStorageSize),
	}
}

// arenaBytes returns the arena bytes a group needs for counters of the
// given total size, plus the broadcast slots under work-stealing.
func arenaBytes(p Policy, privatizedTotal int, local bool) int {
	words := 0
	if local {
		words += privatizedTotal
	}
	if p.Scheduling == SchedulingWorkStealing {
		words += parallel.BroadcastWords
	}
	return words * 4
}
