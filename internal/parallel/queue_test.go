// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"sort"
	"sync"
	"testing"
)

func TestWorkQueue_Claim(t *testing.T) {
	qs := NewWorkQueues([]int{0, 100})
	q := &qs[1]

	if got := q.Claim(8); got != 100 {
		t.Errorf("first Claim(8) = %d, want 100", got)
	}
	if got := q.Claim(8); got != 108 {
		t.Errorf("second Claim(8) = %d, want 108", got)
	}
	if got := q.Next(); got != 116 {
		t.Errorf("Next() = %d, want 116", got)
	}
	if got := qs[0].Next(); got != 0 {
		t.Errorf("other queue Next() = %d, want 0", got)
	}

	q.Reset(5)
	if got := q.Claim(1); got != 5 {
		t.Errorf("Claim after Reset = %d, want 5", got)
	}
}

func TestWorkQueue_ConcurrentClaimsAreDisjoint(t *testing.T) {
	const (
		claimants = 8
		perWorker = 500
		tile      = 4
	)
	qs := NewWorkQueues([]int{0})
	q := &qs[0]

	results := make([][]int, claimants)
	var wg sync.WaitGroup
	wg.Add(claimants)
	for w := range claimants {
		go func() {
			defer wg.Done()
			for range perWorker {
				results[w] = append(results[w], q.Claim(tile))
			}
		}()
	}
	wg.Wait()

	var all []int
	for _, r := range results {
		all = append(all, r...)
	}
	sort.Ints(all)
	for i, off := range all {
		if off != i*tile {
			t.Fatalf("claim %d = %d, want %d", i, off, i*tile)
		}
	}
}
