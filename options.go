// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blockhist

// Option configures a histogram launch.
//
// Example:
//
//	// Defaults: tuned policy, grid sized to the machine.
//	h, err := blockhist.HistogramEven(ctx, pix, 17, uint8(0), uint8(255))
//
//	// Dynamic load balancing for images with very uneven rows.
//	h, err := blockhist.HistogramEven(ctx, pix, 17, uint8(0), uint8(255),
//	    blockhist.WithScheduling(blockhist.SchedulingWorkStealing))
type Option func(*options)

// options holds the resolved configuration of one launch.
type options struct {
	policy       Policy
	placementSet bool
	gridX, gridY int
	workers      int
	region       *Region
	noAccel      bool
}

// defaultOptions returns the options used when none are given.
func defaultOptions() options {
	return options{policy: DefaultPolicy()}
}

func resolveOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPolicy replaces the whole tuning policy. Its placement is taken as
// explicit: counters that do not fit a local arena fail with
// ErrLocalMemoryExceeded instead of moving to global memory.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
		o.placementSet = true
	}
}

// WithLanes sets the number of lanes per group.
func WithLanes(n int) Option {
	return func(o *options) {
		o.policy.Lanes = n
	}
}

// WithPixelsPerLane sets the number of pixels a lane loads per tile.
func WithPixelsPerLane(n int) Option {
	return func(o *options) {
		o.policy.PixelsPerLane = n
	}
}

// WithPlacement sets the counter placement. Without it the default local
// placement silently moves to global memory when counters do not fit.
func WithPlacement(p Placement) Option {
	return func(o *options) {
		o.policy.Placement = p
		o.placementSet = true
	}
}

// WithBlendLocalEvery sets the blended split: a group uses local memory
// when its ordinal is a multiple of n.
func WithBlendLocalEvery(n int) Option {
	return func(o *options) {
		o.policy.BlendLocalEvery = n
	}
}

// WithScheduling sets the tile scheduling strategy.
func WithScheduling(s Scheduling) Option {
	return func(o *options) {
		o.policy.Scheduling = s
	}
}

// WithAccumulation sets the accumulation strategy.
func WithAccumulation(a Accumulation) Option {
	return func(o *options) {
		o.policy.Accumulation = a
	}
}

// WithLocalMemoryBytes sets the arena capacity of each group.
func WithLocalMemoryBytes(n int) Option {
	return func(o *options) {
		o.policy.LocalMemoryBytes = n
	}
}

// WithGrid fixes the launch grid: x groups share every row, rows are dealt
// to y row bands. By default the grid is sized from the worker count.
func WithGrid(x, y int) Option {
	return func(o *options) {
		o.gridX, o.gridY = x, y
	}
}

// WithWorkers runs the launch on a dedicated pool of n workers instead of
// the shared GOMAXPROCS pool.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithRegion histograms a 2-D window of the input. By default the whole
// input is one row.
func WithRegion(r Region) Option {
	return func(o *options) {
		o.region = &r
	}
}

// WithoutAccelerator keeps the launch on the CPU even when a GPU
// accelerator is registered.
func WithoutAccelerator() Option {
	return func(o *options) {
		o.noAccel = true
	}
}
