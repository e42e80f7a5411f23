// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package blockhist computes multi-channel histograms with block-level
// cooperative parallelism.
//
// # Overview
//
// A launch splits the input into a grid of execution groups. Each group is a
// fixed set of lanes that share a small arena of group-local memory, zero a
// private set of bin counters, consume tiles of the input, and finally merge
// their private counts into the shared output histogram. The model is the
// one GPU histogram kernels use; on the CPU lanes are goroutines and groups
// are tasks on a worker pool.
//
// # Quick Start
//
//	import "github.com/gogpu/blockhist"
//
//	// 8 even bins over [0, 255) of an 8-bit grayscale image. Upper
//	// bounds are exclusive, so 255 itself is not counted.
//	hist, err := blockhist.HistogramEven(ctx, img.Pix, 9, uint8(0), uint8(255))
//
//	// RGB histograms of RGBA pixels over caller-chosen bin edges, alpha ignored.
//	hists, err := blockhist.MultiHistogramRange(ctx, rgba.Pix, 4,
//	    [][]uint8{levels, levels, levels},
//	    blockhist.WithRegion(blockhist.Region{
//	        RowPixels: w, Rows: h, RowStrideSamples: rgba.Stride,
//	    }))
//
// Run accepts arbitrary decode operators (package decode) for everything
// the typed entry points do not cover.
//
// # Tuning
//
// Policy controls the lane count, pixels per lane, counter placement
// (group-local, global or blended), tile scheduling (even-share or
// work-stealing) and accumulation (direct or run-length). Results never
// depend on the policy; only throughput does.
//
// # 8-bit Inputs
//
// For uint8 samples the groups always count raw values into 256 privatized
// bins and apply the requested binning when merging. When a GPU accelerator
// is registered (blank import of github.com/gogpu/blockhist/gpu) 8-bit
// launches are offered to it first and fall back to the CPU on any error.
package blockhist
