// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blockhist

import (
	"context"
	"fmt"

	"github.com/x448/float16"

	"github.com/gogpu/blockhist/decode"
)

// HistogramEven counts single-channel samples into levels-1 even bins
// spanning [lower, upper). Samples outside the range are not counted.
func HistogramEven[S decode.Number](ctx context.Context, samples []S, levels int, lower, upper S, opts ...Option) ([]uint32, error) {
	h, err := MultiHistogramEven(ctx, samples, 1, []int{levels}, []S{lower}, []S{upper}, opts...)
	if err != nil {
		return nil, err
	}
	return h[0], nil
}

// MultiHistogramEven counts the first len(levels) channels of interleaved
// pixels of channels samples. Channel ch gets levels[ch]-1 even bins over
// [lower[ch], upper[ch]).
func MultiHistogramEven[S decode.Number](ctx context.Context, samples []S, channels int, levels []int, lower, upper []S, opts ...Option) ([][]uint32, error) {
	if len(lower) != len(levels) || len(upper) != len(levels) {
		return nil, fmt.Errorf("%w: %d levels, %d lower and %d upper bounds",
			ErrInvalidConfig, len(levels), len(lower), len(upper))
	}
	decs := make([]decode.Privatized[S], len(levels))
	bins := make([]int, len(levels))
	for ch, n := range levels {
		if n < 2 || !(lower[ch] < upper[ch]) {
			return nil, fmt.Errorf("%w: channel %d: %d levels over [%v, %v)",
				ErrInvalidConfig, ch, n, lower[ch], upper[ch])
		}
		e := decode.NewEven(n, lower[ch], upper[ch])
		decs[ch], bins[ch] = e, e.Bins()
	}
	return Run(ctx, SliceStream[S](samples), channels, binnedChannels(decs, bins), opts...)
}

// HistogramRange counts single-channel samples into the bins delimited by
// levels: bin i is [levels[i], levels[i+1]). levels must ascend strictly.
func HistogramRange[S decode.Number](ctx context.Context, samples []S, levels []S, opts ...Option) ([]uint32, error) {
	h, err := MultiHistogramRange(ctx, samples, 1, [][]S{levels}, opts...)
	if err != nil {
		return nil, err
	}
	return h[0], nil
}

// MultiHistogramRange counts the first len(levels) channels of interleaved
// pixels of channels samples into the bins delimited by levels[ch].
func MultiHistogramRange[S decode.Number](ctx context.Context, samples []S, channels int, levels [][]S, opts ...Option) ([][]uint32, error) {
	decs := make([]decode.Privatized[S], len(levels))
	bins := make([]int, len(levels))
	for ch, lv := range levels {
		if !ascending(lv) {
			return nil, fmt.Errorf("%w: channel %d: levels must be at least two strictly ascending values",
				ErrInvalidConfig, ch)
		}
		r := decode.NewRange(lv)
		decs[ch], bins[ch] = r, r.Bins()
	}
	return Run(ctx, SliceStream[S](samples), channels, binnedChannels(decs, bins), opts...)
}

// HistogramEvenHalf counts half-precision samples into levels-1 even bins
// spanning [lower, upper). NaN samples are not counted.
func HistogramEvenHalf(ctx context.Context, samples []float16.Float16, levels int, lower, upper float16.Float16, opts ...Option) ([]uint32, error) {
	if levels < 2 || !(lower.Float32() < upper.Float32()) {
		return nil, fmt.Errorf("%w: %d levels over [%v, %v)", ErrInvalidConfig, levels, lower, upper)
	}
	e := decode.NewEvenHalf(levels, lower, upper)
	h, err := Run(ctx, SliceStream[float16.Float16](samples), 1, []Channel[float16.Float16]{{
		PrivatizedBins: e.Bins(),
		Privatized:     e,
		OutputBins:     e.Bins(),
		Output:         decode.Identity{},
	}}, opts...)
	if err != nil {
		return nil, err
	}
	return h[0], nil
}

// binnedChannels builds the channel descriptions of the typed entry points.
//
// 8-bit samples always take the value path: groups count raw values into
// ByteBins privatized bins and the requested binning is applied once per
// bin at merge time. Other sample types bin directly.
func binnedChannels[S decode.Number](decs []decode.Privatized[S], bins []int) []Channel[S] {
	var zero S
	_, isByte := any(zero).(uint8)

	out := make([]Channel[S], len(decs))
	for ch, dec := range decs {
		if isByte {
			out[ch] = Channel[S]{
				PrivatizedBins: ByteBins,
				Privatized:     decode.NewValue[S](ByteBins),
				OutputBins:     bins[ch],
				Output:         decode.NewRemap[S](ByteBins, dec),
			}
			continue
		}
		out[ch] = Channel[S]{
			PrivatizedBins: bins[ch],
			Privatized:     dec,
			OutputBins:     bins[ch],
			Output:         decode.Identity{},
		}
	}
	return out
}

func ascending[S decode.Number](levels []S) bool {
	if len(levels) < 2 {
		return false
	}
	for i := 1; i < len(levels); i++ {
		if !(levels[i-1] < levels[i]) {
			return false
		}
	}
	return true
}
