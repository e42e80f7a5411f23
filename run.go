// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blockhist

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/blockhist/decode"
	"github.com/gogpu/blockhist/internal/engine"
	"github.com/gogpu/blockhist/internal/parallel"
)

// Channel describes the histogram of one active channel.
//
// Every sample is mapped by Privatized to one of PrivatizedBins counters,
// and every counter by Output to one of OutputBins output bins. Both
// decoders must be pure and safe for concurrent use.
type Channel[S any] struct {
	PrivatizedBins int
	Privatized     decode.Privatized[S]
	OutputBins     int
	Output         decode.Output
}

// Run histograms samples, which hold pixels of channels interleaved
// samples. hists describes the first len(hists) channels; the rest are
// skipped. The result holds one slice of OutputBins counts per entry of
// hists.
//
// The launch policy (lanes, pixels per lane, placement, scheduling and
// accumulation) tunes the CPU engine only. A launch taken by a registered
// accelerator runs the accelerator's own kernel and produces the same
// counts; use WithoutAccelerator to force the policy.
//
// Run returns ErrInvalidConfig or ErrLocalMemoryExceeded before launching
// anything, ctx.Err() if ctx is done before every group started, and
// ErrLaunchFailed if a decoder broke its bin range. No partial result is
// ever returned.
func Run[S any](ctx context.Context, samples Stream[S], channels int, hists []Channel[S], opts ...Option) ([][]uint32, error) {
	o := resolveOptions(opts)
	return run(ctx, samples, channels, hists, &o)
}

func run[S any](ctx context.Context, samples Stream[S], channels int, hists []Channel[S], o *options) ([][]uint32, error) {
	if samples == nil {
		return nil, fmt.Errorf("%w: nil sample stream", ErrInvalidConfig)
	}
	if err := validateChannels(channels, hists); err != nil {
		return nil, err
	}
	r := o.regionFor(samples.Len(), channels)
	if err := validateRegion(r, samples.Len(), channels); err != nil {
		return nil, err
	}
	if err := validatePolicy(o); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]uint32, len(hists))
	for ch, h := range hists {
		out[ch] = make([]uint32, h.OutputBins)
	}
	if r.Rows == 0 || r.RowPixels == 0 {
		return out, nil
	}

	if !o.noAccel && tryAccelerator(ctx, samples, channels, r, hists, o.policy, out) {
		return out, nil
	}

	bins := make([]int, len(hists))
	total := 0
	for ch, h := range hists {
		bins[ch] = h.PrivatizedBins
		total += h.PrivatizedBins
	}

	pool, release := o.pool()
	defer release()

	policy := o.policy
	grid := o.gridFor(r, policy, pool.Workers())
	policy, err := placePolicy(policy, o.placementSet, total, grid.Groups())
	if err != nil {
		return nil, err
	}

	cfg := &engine.Config[S]{
		Stream:         samples,
		Channels:       channels,
		ActiveChannels: len(hists),
		PrivatizedBins: bins,
		PrivatizedDec:  make([]decode.Privatized[S], len(hists)),
		OutputDec:      make([]decode.Output, len(hists)),
		Output:         out,
		Region:         r,
		Grid:           grid,
		Policy:         policy,
	}
	for ch, h := range hists {
		cfg.PrivatizedDec[ch] = h.Privatized
		cfg.OutputDec[ch] = h.Output
	}
	if policy.UsesGlobal(grid.Groups()) {
		cfg.Privatized = make([]uint32, grid.Groups()*total)
	}
	if policy.Scheduling == SchedulingWorkStealing {
		cfg.Queues = parallel.NewWorkQueues(engine.QueueStarts(r, grid.X, policy.TileSamples(channels)))
	}

	if err := engine.Launch(ctx, pool, cfg); err != nil {
		return nil, fmt.Errorf("blockhist: launch: %w", err)
	}
	return out, nil
}

func validateChannels[S any](channels int, hists []Channel[S]) error {
	if channels < 1 || channels > MaxChannels {
		return fmt.Errorf("%w: %d channels, want 1..%d", ErrInvalidConfig, channels, MaxChannels)
	}
	if len(hists) < 1 || len(hists) > channels {
		return fmt.Errorf("%w: %d active channels of %d", ErrInvalidConfig, len(hists), channels)
	}
	for ch, h := range hists {
		if h.PrivatizedBins < 1 || h.OutputBins < 1 {
			return fmt.Errorf("%w: channel %d: %d privatized and %d output bins",
				ErrInvalidConfig, ch, h.PrivatizedBins, h.OutputBins)
		}
		if h.Privatized == nil || h.Output == nil {
			return fmt.Errorf("%w: channel %d: missing decoder", ErrInvalidConfig, ch)
		}
	}
	return nil
}

func validateRegion(r Region, n, channels int) error {
	if r.RowPixels < 0 || r.Rows < 0 {
		return fmt.Errorf("%w: region %dx%d", ErrInvalidConfig, r.RowPixels, r.Rows)
	}
	if r.Rows == 0 || r.RowPixels == 0 {
		return nil
	}
	rowSamples := r.RowPixels * channels
	if r.Rows > 1 && r.RowStrideSamples < rowSamples {
		return fmt.Errorf("%w: row stride %d shorter than row of %d samples",
			ErrInvalidConfig, r.RowStrideSamples, rowSamples)
	}
	if need := (r.Rows-1)*r.RowStrideSamples + rowSamples; need > n {
		return fmt.Errorf("%w: region needs %d samples, input has %d", ErrInvalidConfig, need, n)
	}
	return nil
}

func validatePolicy(o *options) error {
	p := o.policy
	if p.Lanes < 1 || p.Lanes > MaxLanes() {
		return fmt.Errorf("%w: %d lanes, want 1..%d", ErrInvalidConfig, p.Lanes, MaxLanes())
	}
	if p.PixelsPerLane < 1 {
		return fmt.Errorf("%w: %d pixels per lane", ErrInvalidConfig, p.PixelsPerLane)
	}
	if p.LocalMemoryBytes < 0 {
		return fmt.Errorf("%w: %d bytes of local memory", ErrInvalidConfig, p.LocalMemoryBytes)
	}
	if p.Placement > PlacementBlended || p.Scheduling > SchedulingWorkStealing || p.Accumulation > AccumulationRunLength {
		return fmt.Errorf("%w: unknown strategy in policy", ErrInvalidConfig)
	}
	if (o.gridX != 0 || o.gridY != 0) && (o.gridX < 1 || o.gridY < 1) {
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidConfig, o.gridX, o.gridY)
	}
	if o.workers < 0 {
		return fmt.Errorf("%w: %d workers", ErrInvalidConfig, o.workers)
	}
	return nil
}

// placePolicy checks that the group arena holds what the policy puts in it.
// An implicit local placement moves to global memory when the counters do
// not fit; an explicit one fails.
func placePolicy(p Policy, explicit bool, total, groups int) (Policy, error) {
	if need := arenaBytes(p, total, p.UsesLocal()); need > p.LocalMemoryBytes {
		if explicit || !p.UsesLocal() {
			return p, fmt.Errorf("%w: %d bytes needed, %d available under %v placement",
				ErrLocalMemoryExceeded, need, p.LocalMemoryBytes, p.Placement)
		}
		Logger().Debug("blockhist: counters exceed local memory, using global placement",
			"needed", need, "available", p.LocalMemoryBytes)
		p.Placement = PlacementGlobal
		if need := arenaBytes(p, total, false); need > p.LocalMemoryBytes {
			return p, fmt.Errorf("%w: %d bytes needed, %d available",
				ErrLocalMemoryExceeded, need, p.LocalMemoryBytes)
		}
	}
	return p, nil
}

// regionFor returns the configured region, or the whole input as one row.
// Trailing samples that do not form a whole pixel are ignored.
func (o *options) regionFor(n, channels int) Region {
	if o.region != nil {
		return *o.region
	}
	px := n / max(channels, 1)
	return Region{RowPixels: px, Rows: 1, RowStrideSamples: px * channels}
}

// gridFor returns the configured grid, or one sized to keep about two
// groups per worker resident.
func (o *options) gridFor(r Region, p Policy, workers int) engine.Grid {
	if o.gridX > 0 && o.gridY > 0 {
		return engine.Grid{X: o.gridX, Y: o.gridY}
	}
	target := max(2*workers, 1)
	tiles := (r.RowPixels + p.TilePixels() - 1) / p.TilePixels()
	x := min(max(tiles, 1), target)
	y := min(max(target/x, 1), max(r.Rows, 1))
	return engine.Grid{X: x, Y: y}
}

var sharedPool = sync.OnceValue(func() *parallel.GroupPool {
	return parallel.NewGroupPool(0)
})

// pool returns the pool to launch on and a release func.
func (o *options) pool() (*parallel.GroupPool, func()) {
	if o.workers > 0 {
		p := parallel.NewGroupPool(o.workers)
		return p, p.Close
	}
	return sharedPool(), func() {}
}
