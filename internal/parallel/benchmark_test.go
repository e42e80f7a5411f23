package parallel

import (
	"context"
	"sync"
	"testing"
)

// =============================================================================
// Component Benchmarks - GroupPool
// =============================================================================

// BenchmarkGroupPool_Create benchmarks creating a group pool.
func BenchmarkGroupPool_Create(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		pool := NewGroupPool(0) // Use GOMAXPROCS
		pool.Close()
	}
}

func benchmarkDispatch(b *testing.B, groups int) {
	pool := NewGroupPool(0)
	defer pool.Close()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = pool.Dispatch(ctx, groups, func(int) {
			// Minimal work
		})
	}
}

// BenchmarkGroupPool_Dispatch_10 benchmarks dispatching 10 groups.
func BenchmarkGroupPool_Dispatch_10(b *testing.B) { benchmarkDispatch(b, 10) }

// BenchmarkGroupPool_Dispatch_100 benchmarks dispatching 100 groups.
func BenchmarkGroupPool_Dispatch_100(b *testing.B) { benchmarkDispatch(b, 100) }

// BenchmarkGroupPool_Dispatch_1000 benchmarks dispatching 1000 groups.
func BenchmarkGroupPool_Dispatch_1000(b *testing.B) { benchmarkDispatch(b, 1000) }

// BenchmarkGroupPool_Dispatch_WithWork benchmarks groups that clear a
// counter block each, as InitBinCounters does.
func BenchmarkGroupPool_Dispatch_WithWork(b *testing.B) {
	pool := NewGroupPool(0)
	defer pool.Close()
	ctx := context.Background()

	counters := make([][]uint32, 100)
	for i := range counters {
		counters[i] = make([]uint32, 1024)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = pool.Dispatch(ctx, len(counters), func(ordinal int) {
			clear(counters[ordinal])
		})
	}
}

// =============================================================================
// Component Benchmarks - Barrier
// =============================================================================

func benchmarkBarrier(b *testing.B, lanes int) {
	bar := NewBarrier(lanes)

	b.ReportAllocs()
	b.ResetTimer()

	var wg sync.WaitGroup
	wg.Add(lanes)
	for range lanes {
		go func() {
			defer wg.Done()
			for i := 0; i < b.N; i++ {
				bar.Wait()
			}
		}()
	}
	wg.Wait()
}

// BenchmarkBarrier_Wait_8Lanes benchmarks one barrier round of 8 lanes.
func BenchmarkBarrier_Wait_8Lanes(b *testing.B) { benchmarkBarrier(b, 8) }

// BenchmarkBarrier_Wait_32Lanes benchmarks one barrier round of 32 lanes.
func BenchmarkBarrier_Wait_32Lanes(b *testing.B) { benchmarkBarrier(b, 32) }

// =============================================================================
// Component Benchmarks - WorkQueue
// =============================================================================

// BenchmarkWorkQueue_Claim benchmarks uncontended claims.
func BenchmarkWorkQueue_Claim(b *testing.B) {
	qs := NewWorkQueues([]int{0})

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = qs[0].Claim(256)
	}
}

// BenchmarkWorkQueue_Claim_Parallel benchmarks claims from every core on
// one queue.
func BenchmarkWorkQueue_Claim_Parallel(b *testing.B) {
	qs := NewWorkQueues([]int{0})

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = qs[0].Claim(256)
		}
	})
}

// BenchmarkWorkQueue_Claim_Neighbours benchmarks claims on adjacent queues,
// which must not share a cache line.
func BenchmarkWorkQueue_Claim_Neighbours(b *testing.B) {
	qs := NewWorkQueues(make([]int, 64))
	var next sync.Mutex
	slot := 0

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		next.Lock()
		q := &qs[slot%len(qs)]
		slot++
		next.Unlock()
		for pb.Next() {
			_ = q.Claim(256)
		}
	})
}

// =============================================================================
// Hot Path Benchmarks
// =============================================================================

// BenchmarkHotPath_BroadcastRound benchmarks the publish/read pair of a
// single-lane work-stealing round.
func BenchmarkHotPath_BroadcastRound(b *testing.B) {
	bc := NewBroadcast(make([]uint32, BroadcastWords))

	b.ReportAllocs()
	b.ResetTimer()

	sum := 0
	for i := 0; i < b.N; i++ {
		bc.Publish(i, i)
		sum += bc.Read(i)
	}
	_ = sum
}
