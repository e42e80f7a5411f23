// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned by Dispatch once the pool has been closed.
var ErrPoolClosed = errors.New("parallel: group pool closed")

// GroupPool hosts execution groups on a fixed set of worker goroutines.
//
// A worker plays the role of a streaming multiprocessor: it runs one group
// to completion at a time, so the number of workers bounds how many groups
// are resident at once. Groups are queued per worker; an idle worker steals
// queued groups from its peers, which evens out groups of unequal cost.
//
// Thread safety: GroupPool is safe for concurrent use.
type GroupPool struct {
	workers int

	// queues holds per-worker group queues.
	queues []chan func()

	done chan struct{}
	wg   sync.WaitGroup

	running atomic.Bool
}

// NewGroupPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// Workers start immediately and wait for groups.
func NewGroupPool(workers int) *GroupPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// 2-4x workers of buffering hides dispatch latency.
	queueSize := max(workers*4, 8)

	p := &GroupPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *GroupPool) worker(id int) {
	defer p.wg.Done()

	mine := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(mine)
			return

		case fn := <-mine:
			if fn != nil {
				fn()
			}

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(mine)
				return
			case fn := <-mine:
				if fn != nil {
					fn()
				}
			}
		}
	}
}

// drain runs whatever is left in a queue.
func (p *GroupPool) drain(queue chan func()) {
	for {
		select {
		case fn := <-queue:
			if fn != nil {
				fn()
			}
		default:
			return
		}
	}
}

// steal takes one queued group from another worker, or returns nil.
func (p *GroupPool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case fn := <-p.queues[i]:
			return fn
		default:
		}
	}
	return nil
}

// Dispatch runs fn(ordinal) for every ordinal in [0, groups) and waits for
// all of them.
//
// Ordinals are dealt round-robin to the worker queues. Once ctx is done no
// further group starts; groups already running finish normally. Dispatch
// then returns ctx.Err(), and the caller must treat the whole dispatch as
// failed because some ordinals never ran. Dispatch on a closed pool returns
// ErrPoolClosed.
func (p *GroupPool) Dispatch(ctx context.Context, groups int, fn func(ordinal int)) error {
	if groups <= 0 {
		return nil
	}
	if !p.running.Load() {
		return ErrPoolClosed
	}

	var (
		wg      sync.WaitGroup
		skipped atomic.Bool
	)
	wg.Add(groups)

	for ordinal := range groups {
		run := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				skipped.Store(true)
				return
			}
			fn(ordinal)
		}

		select {
		case p.queues[ordinal%p.workers] <- run:
		case <-p.done:
			// Closing: account for everything not queued.
			skipped.Store(true)
			for range groups - ordinal {
				wg.Done()
			}
			wg.Wait()
			return ErrPoolClosed
		case <-ctx.Done():
			skipped.Store(true)
			for range groups - ordinal {
				wg.Done()
			}
			wg.Wait()
			return ctx.Err()
		}
	}

	wg.Wait()
	if skipped.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrPoolClosed
	}
	return nil
}

// Close stops accepting groups, runs everything already queued, and stops
// the workers. Close is safe to call multiple times.
func (p *GroupPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers, i.e. the maximum number of
// resident groups.
func (p *GroupPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool still accepts groups.
func (p *GroupPool) IsRunning() bool {
	return p.running.Load()
}
