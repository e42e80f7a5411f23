// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blockhist

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/x448/float16"

	"github.com/gogpu/blockhist/decode"
)

// =============================================================================
// Typed entry points
// =============================================================================

func TestHistogramEven_Bytes(t *testing.T) {
	resetAccelerator()
	samples := []uint8{0, 0, 1, 2, 2, 2, 3, 0}
	got, err := HistogramEven(context.Background(), samples, 5, uint8(0), uint8(4))
	if err != nil {
		t.Fatalf("HistogramEven() error = %v", err)
	}
	if want := []uint32{3, 1, 3, 1}; !slices.Equal(got, want) {
		t.Errorf("histogram = %v, want %v", got, want)
	}
}

// Short inputs end inside the first tile; lanes past the data must not
// touch it.
func TestHistogramEven_ShortBytes(t *testing.T) {
	resetAccelerator()
	for _, n := range []int{1, 3, 64, 100, 257} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			samples := make([]uint8, n)
			for i := range samples {
				samples[i] = uint8(i * 37)
			}
			got, err := HistogramEven(context.Background(), samples, 5, uint8(0), uint8(255))
			if err != nil {
				t.Fatalf("HistogramEven() error = %v", err)
			}
			even := decode.NewEven[uint8](5, 0, 255)
			want := make([]uint32, 4)
			for _, v := range samples {
				if b, ok := even.Bin(v); ok {
					want[b]++
				}
			}
			if !slices.Equal(got, want) {
				t.Errorf("histogram = %v, want %v", got, want)
			}
		})
	}
}

func TestHistogramEven_Floats(t *testing.T) {
	samples := []float32{-1, 0, 0.25, 0.5, 0.75, 0.999, 1, 2}
	got, err := HistogramEven(context.Background(), samples, 3, float32(0), float32(1))
	if err != nil {
		t.Fatalf("HistogramEven() error = %v", err)
	}
	if want := []uint32{2, 3}; !slices.Equal(got, want) {
		t.Errorf("histogram = %v, want %v", got, want)
	}
}

func TestHistogramRange(t *testing.T) {
	samples := []int16{-5, 0, 1, 9, 10, 99, 100, 1000}
	got, err := HistogramRange(context.Background(), samples, []int16{0, 10, 100})
	if err != nil {
		t.Fatalf("HistogramRange() error = %v", err)
	}
	if want := []uint32{3, 2}; !slices.Equal(got, want) {
		t.Errorf("histogram = %v, want %v", got, want)
	}
}

func TestHistogramEvenHalf(t *testing.T) {
	h := func(v float32) float16.Float16 { return float16.Fromfloat32(v) }
	samples := []float16.Float16{h(0), h(0.5), h(1.5), h(3.9), h(4), float16.NaN(), h(-1)}
	got, err := HistogramEvenHalf(context.Background(), samples, 5, h(0), h(4))
	if err != nil {
		t.Fatalf("HistogramEvenHalf() error = %v", err)
	}
	if want := []uint32{2, 1, 0, 1}; !slices.Equal(got, want) {
		t.Errorf("histogram = %v, want %v", got, want)
	}
}

func TestMultiHistogramEven_RGBA(t *testing.T) {
	resetAccelerator()
	// Two rows of three RGBA pixels, stride of four pixels.
	pix := []uint8{
		0, 100, 200, 7, 10, 110, 210, 7, 20, 120, 220, 7, 99, 99, 99, 99,
		30, 130, 230, 7, 40, 140, 240, 7, 50, 150, 250, 7, 99, 99, 99, 99,
	}
	r := Region{RowPixels: 3, Rows: 2, RowStrideSamples: 16}
	got, err := MultiHistogramEven(context.Background(), pix, 4,
		[]int{3, 3, 3}, []uint8{0, 100, 200}, []uint8{60, 160, 255}, WithRegion(r))
	if err != nil {
		t.Fatalf("MultiHistogramEven() error = %v", err)
	}
	want := [][]uint32{{3, 3}, {3, 3}, {3, 3}}
	for ch := range want {
		if !slices.Equal(got[ch], want[ch]) {
			t.Errorf("channel %d = %v, want %v", ch, got[ch], want[ch])
		}
	}
}

// Every policy over random 8-bit RGBA input agrees with a serial count.
func TestMultiHistogramRange_AllPolicies(t *testing.T) {
	resetAccelerator()
	rng := rand.New(rand.NewPCG(7, 11))
	const w, h, stride = 97, 13, 4 * 100
	pix := make([]uint8, h*stride)
	for i := range pix {
		pix[i] = uint8(rng.IntN(256))
	}
	levels := [][]uint8{{0, 50, 100, 150, 200}, {10, 20, 255}, {0, 128, 255}}

	want := make([][]uint32, len(levels))
	for ch, lv := range levels {
		want[ch] = make([]uint32, len(lv)-1)
		for y := range h {
			for x := range w {
				v := pix[y*stride+x*4+ch]
				for b := 0; b < len(lv)-1; b++ {
					if v >= lv[b] && v < lv[b+1] {
						want[ch][b]++
					}
				}
			}
		}
	}

	for _, pl := range []Placement{PlacementLocal, PlacementGlobal, PlacementBlended} {
		for _, sc := range []Scheduling{SchedulingEvenShare, SchedulingWorkStealing} {
			for _, ac := range []Accumulation{AccumulationDirect, AccumulationRunLength} {
				name := fmt.Sprintf("%v/%v/%v", pl, sc, ac)
				t.Run(name, func(t *testing.T) {
					got, err := MultiHistogramRange(context.Background(), pix, 4, levels,
						WithRegion(Region{RowPixels: w, Rows: h, RowStrideSamples: stride}),
						WithPlacement(pl), WithScheduling(sc), WithAccumulation(ac),
						WithLanes(4), WithPixelsPerLane(3), WithGrid(3, 2), WithWorkers(2))
					if err != nil {
						t.Fatalf("MultiHistogramRange() error = %v", err)
					}
					for ch := range want {
						if !slices.Equal(got[ch], want[ch]) {
							t.Errorf("channel %d = %v, want %v", ch, got[ch], want[ch])
						}
					}
				})
			}
		}
	}
}

func TestBinnedChannels(t *testing.T) {
	bytes := binnedChannels([]decode.Privatized[uint8]{decode.NewEven[uint8](3, 0, 10)}, []int{2})
	if bytes[0].PrivatizedBins != ByteBins || bytes[0].OutputBins != 2 {
		t.Errorf("uint8 channel bins = %d/%d, want %d/2", bytes[0].PrivatizedBins, bytes[0].OutputBins, ByteBins)
	}
	if _, ok := bytes[0].Output.(decode.Remap); !ok {
		t.Errorf("uint8 output decoder = %T, want decode.Remap", bytes[0].Output)
	}

	ints := binnedChannels([]decode.Privatized[int8]{decode.NewEven[int8](3, 0, 10)}, []int{2})
	if ints[0].PrivatizedBins != 2 {
		t.Errorf("int8 privatized bins = %d, want 2", ints[0].PrivatizedBins)
	}
	if _, ok := ints[0].Output.(decode.Identity); !ok {
		t.Errorf("int8 output decoder = %T, want decode.Identity", ints[0].Output)
	}
}

// =============================================================================
// Validation
// =============================================================================

func TestTypedEntryPoints_InvalidConfig(t *testing.T) {
	ctx := context.Background()
	samples := []uint8{1, 2, 3, 4}
	tests := []struct {
		name string
		run  func() error
	}{
		{"even one level", func() error {
			_, err := HistogramEven(ctx, samples, 1, uint8(0), uint8(4))
			return err
		}},
		{"even empty range", func() error {
			_, err := HistogramEven(ctx, samples, 3, uint8(4), uint8(4))
			return err
		}},
		{"even mismatched bounds", func() error {
			_, err := MultiHistogramEven(ctx, samples, 2, []int{3, 3}, []uint8{0}, []uint8{4, 4})
			return err
		}},
		{"range not ascending", func() error {
			_, err := HistogramRange(ctx, samples, []uint8{0, 5, 5})
			return err
		}},
		{"range single level", func() error {
			_, err := HistogramRange(ctx, samples, []uint8{0})
			return err
		}},
		{"more active than channels", func() error {
			_, err := MultiHistogramRange(ctx, samples, 1, [][]uint8{{0, 4}, {0, 4}})
			return err
		}},
		{"half empty range", func() error {
			one := float16.Fromfloat32(1)
			_, err := HistogramEvenHalf(ctx, nil, 3, one, one)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
