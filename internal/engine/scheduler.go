// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import "github.com/gogpu/blockhist/internal/parallel"

// scheduler walks the tiles of one row segment that belong to a group.
//
// Both strategies consume full tiles while a whole tile fits before rowEnd,
// then at most one partial tile of rowEnd - offset samples. Across all
// groups of a grid column set the tiles partition [rowOffset, rowEnd).
type scheduler[S any] interface {
	consumeTiles(e *Engine[S], l *Lane[S], rowOffset, rowEnd int, queue *parallel.WorkQueue)
}

// evenShare stripes tiles statically across the GridX groups of a row band.
type evenShare[S any] struct{}

func (evenShare[S]) consumeTiles(e *Engine[S], l *Lane[S], rowOffset, rowEnd int, _ *parallel.WorkQueue) {
	tile := e.tileSamples
	stride := e.group.GridX * tile
	off := rowOffset + e.group.X*tile
	for ; off+tile <= rowEnd; off += stride {
		e.consumeTile(l, off, tile, true)
	}
	if off < rowEnd {
		e.consumeTile(l, off, rowEnd-off, false)
	}
}

// workStealing consumes the group's static tile, then claims the next one
// from the row queue. The host starts each queue at rowOffset + GridX*tile,
// past every static tile of the row.
//
// Per claim lane 0 fetches the offset and publishes it through the arena
// broadcast slots; one barrier later every lane reads it. Lane.round keeps
// counting across rows so consecutive claims alternate broadcast slots.
type workStealing[S any] struct{}

func (workStealing[S]) consumeTiles(e *Engine[S], l *Lane[S], rowOffset, rowEnd int, queue *parallel.WorkQueue) {
	tile := e.tileSamples
	off := rowOffset + e.group.X*tile
	for off+tile <= rowEnd {
		e.consumeTile(l, off, tile, true)
		if l.lane == 0 {
			e.broadcast.Publish(l.round, queue.Claim(tile))
		}
		e.group.Barrier.Wait()
		off = e.broadcast.Read(l.round)
		l.round++
	}
	if off < rowEnd {
		e.consumeTile(l, off, rowEnd-off, false)
	}
}

func newScheduler[S any](mode Scheduling) scheduler[S] {
	if mode == SchedulingWorkStealing {
		return workStealing[S]{}
	}
	return evenShare[S]{}
}

// QueueStarts returns the initial WorkQueue offsets for the rows of a
// region under a grid of gridX groups per row band.
func QueueStarts(r Region, gridX, tileSamples int) []int {
	starts := make([]int, r.Rows)
	for y := range starts {
		starts[y] = r.RowOffset(y) + gridX*tileSamples
	}
	return starts
}
