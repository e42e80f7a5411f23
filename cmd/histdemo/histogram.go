// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/gogpu/blockhist"
	"github.com/gogpu/blockhist/decode"
)

// rgbaChannels is the interleave of every decoded input.
const rgbaChannels = 4

// histogram counts the first cfg.channels channels of img.
func histogram(ctx context.Context, img *image.RGBA, cfg config) ([][]uint32, error) {
	dx, dy := img.Rect.Dx(), img.Rect.Dy()
	opts := append([]blockhist.Option{
		blockhist.WithRegion(blockhist.Region{
			RowPixels:        dx,
			Rows:             dy,
			RowStrideSamples: img.Stride,
		}),
	}, cfg.opts...)

	if cfg.edges != nil {
		levels := make([][]uint8, cfg.channels)
		for ch := range levels {
			levels[ch] = cfg.edges
		}
		return blockhist.MultiHistogramRange(ctx, img.Pix, rgbaChannels, levels, opts...)
	}

	hists := make([]blockhist.Channel[uint8], cfg.channels)
	for ch := range hists {
		hists[ch] = blockhist.Channel[uint8]{
			PrivatizedBins: blockhist.ByteBins,
			Privatized:     decode.NewValue[uint8](blockhist.ByteBins),
			OutputBins:     cfg.bins,
			Output:         fullRange(cfg.bins),
		}
	}
	return blockhist.Run(ctx, blockhist.SliceStream[uint8](img.Pix), rgbaChannels, hists, opts...)
}

// fullRange maps each of the 256 byte values to one of bins even bins.
// Unlike an even decoder over [0, 255), value 255 lands in the last bin.
func fullRange(bins int) decode.Output {
	return decode.OutputFunc(func(v int) (int, bool) {
		return v * bins / blockhist.ByteBins, true
	})
}

// binLabels returns the "[lo, hi)" label of every output bin.
func binLabels(cfg config) []string {
	if cfg.edges != nil {
		labels := make([]string, len(cfg.edges)-1)
		for i := range labels {
			labels[i] = fmt.Sprintf("[%3d, %3d)", cfg.edges[i], cfg.edges[i+1])
		}
		return labels
	}
	labels := make([]string, cfg.bins)
	for b := range labels {
		lo := (b*blockhist.ByteBins + cfg.bins - 1) / cfg.bins
		hi := ((b+1)*blockhist.ByteBins + cfg.bins - 1) / cfg.bins
		labels[b] = fmt.Sprintf("[%3d, %3d)", lo, hi)
	}
	return labels
}

func parseChannels(s string) (int, error) {
	switch strings.ToLower(s) {
	case "gray", "r":
		return 1, nil
	case "rgb":
		return 3, nil
	case "rgba":
		return 4, nil
	}
	return 0, fmt.Errorf("unknown channel set %q (want gray, rgb or rgba)", s)
}

// parseEdges parses strictly ascending 8-bit bin edges.
func parseEdges(s string) ([]uint8, error) {
	fields := strings.Split(s, ",")
	if len(fields) < 2 {
		return nil, fmt.Errorf("edges %q: need at least two values", s)
	}
	edges := make([]uint8, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("edges %q: %w", s, err)
		}
		edges[i] = uint8(v)
		if i > 0 && edges[i] <= edges[i-1] {
			return nil, fmt.Errorf("edges %q: values must ascend strictly", s)
		}
	}
	return edges, nil
}

// policyOptions turns the tuning flags into launch options. Zero values and
// empty strings keep the library defaults.
func policyOptions(lanes, ppl int, placement, scheduling, accum string, workers int, cpuOnly bool) ([]blockhist.Option, error) {
	var opts []blockhist.Option
	if lanes > 0 {
		opts = append(opts, blockhist.WithLanes(lanes))
	}
	if ppl > 0 {
		opts = append(opts, blockhist.WithPixelsPerLane(ppl))
	}
	switch placement {
	case "":
	case "local":
		opts = append(opts, blockhist.WithPlacement(blockhist.PlacementLocal))
	case "global":
		opts = append(opts, blockhist.WithPlacement(blockhist.PlacementGlobal))
	case "blended":
		opts = append(opts, blockhist.WithPlacement(blockhist.PlacementBlended))
	default:
		return nil, fmt.Errorf("unknown placement %q", placement)
	}
	switch scheduling {
	case "":
	case "even":
		opts = append(opts, blockhist.WithScheduling(blockhist.SchedulingEvenShare))
	case "steal":
		opts = append(opts, blockhist.WithScheduling(blockhist.SchedulingWorkStealing))
	default:
		return nil, fmt.Errorf("unknown scheduling %q", scheduling)
	}
	switch accum {
	case "":
	case "direct":
		opts = append(opts, blockhist.WithAccumulation(blockhist.AccumulationDirect))
	case "rle":
		opts = append(opts, blockhist.WithAccumulation(blockhist.AccumulationRunLength))
	default:
		return nil, fmt.Errorf("unknown accumulation %q", accum)
	}
	if workers > 0 {
		opts = append(opts, blockhist.WithWorkers(workers))
	}
	if cpuOnly {
		opts = append(opts, blockhist.WithoutAccelerator())
	}
	return opts, nil
}
