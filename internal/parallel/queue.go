// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// WorkQueue is the shared tile claim counter of a work-stealing launch.
//
// It holds the next unclaimed offset. Claim is a single fetch-and-add, so
// every offset is handed to exactly one claimant. The counter sits on its
// own cache line: every group hammers it at tile boundaries, and queues for
// neighbouring rows live in the same slice.
type WorkQueue struct {
	_    cpu.CacheLinePad
	next atomic.Int64
	_    cpu.CacheLinePad
}

// NewWorkQueues returns one queue per start offset, initialized to it.
func NewWorkQueues(starts []int) []WorkQueue {
	qs := make([]WorkQueue, len(starts))
	for i, s := range starts {
		qs[i].Reset(s)
	}
	return qs
}

// Reset sets the next unclaimed offset.
// It must not race with Claim.
func (q *WorkQueue) Reset(start int) {
	q.next.Store(int64(start))
}

// Claim reserves n units and returns the first one.
func (q *WorkQueue) Claim(n int) int {
	return int(q.next.Add(int64(n)) - int64(n))
}

// Next returns the next unclaimed offset without claiming it.
func (q *WorkQueue) Next() int {
	return int(q.next.Load())
}
