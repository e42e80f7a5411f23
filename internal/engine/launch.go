// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/blockhist/internal/parallel"
)

// ErrLaunchFailed is returned when a lane panicked during a launch. The
// output of a failed launch is unspecified.
var ErrLaunchFailed = errors.New("engine: launch failed")

// Launch runs cfg on pool: one pool task per group, Policy.Lanes goroutines
// per group. It returns once every group has merged, or with an error when
// ctx was done before every group started or a lane panicked. In both error
// cases the output is partial and must be discarded.
func Launch[S any](ctx context.Context, pool *parallel.GroupPool, cfg *Config[S]) error {
	aligned := canLoadAligned(cfg.Stream, cfg.Channels, cfg.Policy.PixelsPerLane, cfg.Region.RowStrideSamples)
	arenas := arenasFor(cfg.Policy.LocalMemoryBytes)
	lanes := cfg.Policy.Lanes

	log := slogger()
	log.Debug("engine: launch",
		"grid_x", cfg.Grid.X,
		"grid_y", cfg.Grid.Y,
		"lanes", lanes,
		"pixels_per_lane", cfg.Policy.PixelsPerLane,
		"tile_samples", cfg.Policy.TileSamples(cfg.Channels),
		"placement", cfg.Policy.Placement,
		"scheduling", cfg.Policy.Scheduling,
		"accumulation", cfg.Policy.Accumulation,
		"aligned", aligned,
		"rows", cfg.Region.Rows,
	)

	var fail launchFailure
	err := pool.Dispatch(ctx, cfg.Grid.Groups(), func(ordinal int) {
		arena := arenas.get()
		defer arenas.put(arena)

		g := newGroup(ordinal, cfg.Grid, lanes, arena)
		e := New(cfg, g, aligned)
		if ordinal == 0 {
			log.Debug("engine: group placement", "ordinal", ordinal, "local", e.Local())
		}

		var wg sync.WaitGroup
		wg.Add(lanes)
		for lane := range lanes {
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						if r != parallel.ErrBarrierBroken {
							fail.record(ordinal, lane, r)
						}
						g.Barrier.Break()
					}
				}()
				e.RunLane(lane)
			}()
		}
		wg.Wait()
	})
	if err != nil {
		return err
	}
	return fail.err()
}

// launchFailure keeps the first lane panic of a launch.
type launchFailure struct {
	once  sync.Once
	mu    sync.Mutex
	cause error
}

func (f *launchFailure) record(ordinal, lane int, r any) {
	f.once.Do(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cause = fmt.Errorf("%w: group %d lane %d: %v", ErrLaunchFailed, ordinal, lane, r)
		slogger().Error("engine: lane panicked", "ordinal", ordinal, "lane", lane, "panic", r)
	})
}

func (f *launchFailure) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cause
}
