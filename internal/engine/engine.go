// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"github.com/gogpu/blockhist/decode"
	"github.com/gogpu/blockhist/internal/parallel"
)

// Region is the 2-D window of the stream a launch histograms.
type Region struct {
	// RowPixels is the number of pixels per row.
	RowPixels int

	// Rows is the number of rows.
	Rows int

	// RowStrideSamples is the distance between row starts, in samples.
	RowStrideSamples int
}

// RowOffset returns the first sample of row y.
func (r Region) RowOffset(y int) int { return y * r.RowStrideSamples }

// Grid is the launch geometry: X groups share every row, rows are dealt to
// Y row bands.
type Grid struct {
	X, Y int
}

// Groups returns the total number of groups.
func (g Grid) Groups() int { return g.X * g.Y }

// Config is everything a launch binds. The host owns and zeroes every
// buffer; the engine only adds to Output and scribbles on Privatized.
type Config[S any] struct {
	Stream Stream[S]

	// Channels is the number of interleaved samples per pixel. The first
	// ActiveChannels of them are histogrammed.
	Channels       int
	ActiveChannels int

	// Per active channel.
	PrivatizedBins []int
	PrivatizedDec  []decode.Privatized[S]
	OutputDec      []decode.Output
	Output         [][]uint32

	// Privatized is the global-placement buffer, Groups × Σ PrivatizedBins
	// words. It may be nil when no group uses global placement.
	Privatized []uint32

	// Queues holds one WorkQueue per row, started at QueueStarts.
	// Only read under SchedulingWorkStealing.
	Queues []parallel.WorkQueue

	Region Region
	Grid   Grid
	Policy Policy
}

// privatizedTotal returns Σ PrivatizedBins.
func (c *Config[S]) privatizedTotal() int {
	n := 0
	for _, b := range c.PrivatizedBins {
		n += b
	}
	return n
}

// Group is one execution group of a launch.
type Group struct {
	Ordinal int

	// X is the column of the group within its row band, Y the band.
	X, Y         int
	GridX, GridY int

	Barrier *parallel.Barrier
	Arena   *Arena
}

// newGroup places ordinal in the grid: ordinal = Y*GridX + X.
func newGroup(ordinal int, grid Grid, lanes int, arena *Arena) *Group {
	return &Group{
		Ordinal: ordinal,
		X:       ordinal % grid.X,
		Y:       ordinal / grid.X,
		GridX:   grid.X,
		GridY:   grid.Y,
		Barrier: parallel.NewBarrier(lanes),
		Arena:   arena,
	}
}

// Engine is the per-group histogram engine. It is built once per group per
// launch and shared by the group's lanes.
type Engine[S any] struct {
	cfg   *Config[S]
	group *Group

	policy         Policy
	channels       int
	activeChannels int
	tileSamples    int

	store     counterStore
	output    [][]uint32
	outputDec []decode.Output
	broadcast parallel.Broadcast

	fullLoad    loader[S]
	partialLoad loader[S]
	acc         accumulator[S]
	sched       scheduler[S]
}

// New binds cfg to group g. aligned selects the vector loaders and must
// come from the launch-wide alignment check.
func New[S any](cfg *Config[S], g *Group, aligned bool) *Engine[S] {
	e := &Engine[S]{
		cfg:            cfg,
		group:          g,
		policy:         cfg.Policy,
		channels:       cfg.Channels,
		activeChannels: cfg.ActiveChannels,
		tileSamples:    cfg.Policy.TileSamples(cfg.Channels),
		output:         cfg.Output,
		outputDec:      cfg.OutputDec,
	}

	total := cfg.privatizedTotal()
	if cfg.Policy.PreferLocal(g.Ordinal) {
		e.store = newLocalCounters(g.Arena, cfg.PrivatizedBins, total)
	} else {
		e.store = newGlobalCounters(cfg.Privatized, g.Ordinal, cfg.PrivatizedBins, total)
	}
	if cfg.Policy.Scheduling == SchedulingWorkStealing {
		e.broadcast = parallel.NewBroadcast(g.Arena.Reserve(TagBroadcast, parallel.BroadcastWords))
	}

	g.Arena.SetPhase(PhaseInit)

	e.fullLoad, e.partialLoad = newLoaders(cfg.Stream, aligned, cfg.Policy.PixelsPerLane, cfg.Channels)
	e.acc = newAccumulator(cfg.Policy.Accumulation, e.store, cfg.PrivatizedDec, cfg.Channels)
	e.sched = newScheduler[S](cfg.Policy.Scheduling)
	return e
}

// Local reports whether the group keeps its counters in the arena.
func (e *Engine[S]) Local() bool { return e.store.local() }

// Lane is the per-lane state: the loaded items and the run scratch.
type Lane[S any] struct {
	lane  int
	items []S
	bins  []int

	// round counts work-stealing claims for broadcast slot parity.
	round int
}

// NewLane allocates the state of lane.
func (e *Engine[S]) NewLane(lane int) *Lane[S] {
	ppl := e.policy.PixelsPerLane
	l := &Lane[S]{
		lane:  lane,
		items: make([]S, ppl*e.channels),
	}
	if e.policy.Accumulation == AccumulationRunLength {
		l.bins = make([]int, ppl)
	}
	return l
}

// ConsumeTiles processes every tile of [rowOffset, rowEnd) assigned to this
// group. All lanes of the group must call it with the same arguments.
func (e *Engine[S]) ConsumeTiles(l *Lane[S], rowOffset, rowEnd int, queue *parallel.WorkQueue) {
	e.sched.consumeTiles(e, l, rowOffset, rowEnd, queue)
}

// consumeTile loads the lane's share of one tile and accumulates it.
func (e *Engine[S]) consumeTile(l *Lane[S], off, valid int, full bool) {
	var pixels int
	if full {
		pixels = e.fullLoad.load(l.items, off, l.lane, valid)
	} else {
		pixels = e.partialLoad.load(l.items, off, l.lane, valid)
	}
	if pixels > 0 {
		e.acc.accumulate(l, pixels)
	}
}

// RunLane is the whole per-launch entry sequence of one lane.
func (e *Engine[S]) RunLane(lane int) {
	l := e.NewLane(lane)
	e.InitBinCounters(lane)

	r := e.cfg.Region
	rowSamples := r.RowPixels * e.channels
	for y := e.group.Y; y < r.Rows; y += e.group.GridY {
		off := r.RowOffset(y)
		var q *parallel.WorkQueue
		if e.cfg.Queues != nil {
			q = &e.cfg.Queues[y]
		}
		e.ConsumeTiles(l, off, off+rowSamples, q)
	}

	e.StoreOutput(lane)
}
