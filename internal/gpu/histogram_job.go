//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/blockhist"
	"github.com/gogpu/gputypes"
)

// Kernel geometry. These must match shaders/histogram.wgsl.
const (
	kernelLanes         = 64
	kernelBins          = blockhist.ByteBins
	kernelMaxActive     = 4
	kernelPixelsPerLane = 16

	// Work-group grid caps. Groups beyond these stride over the region.
	maxGridX = 16
	maxGridY = 256

	paramsSize   = 32
	countersSize = kernelBins * kernelMaxActive * 4
)

// histogramParams mirrors the Params uniform of the kernel.
type histogramParams struct {
	Channels      uint32
	Active        uint32
	RowPixels     uint32
	Rows          uint32
	RowStride     uint32
	GridX         uint32
	GridY         uint32
	PixelsPerLane uint32
}

func (p histogramParams) bytes() []byte {
	b := make([]byte, paramsSize)
	for i, v := range []uint32{
		p.Channels, p.Active, p.RowPixels, p.Rows,
		p.RowStride, p.GridX, p.GridY, p.PixelsPerLane,
	} {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return b
}

// preparedJob is a ByteJob encoded for upload.
type preparedJob struct {
	params  histogramParams
	samples []byte // padded to a whole number of words
	tables  []byte
}

// prepareJob validates job against the kernel and device limits and encodes
// it. Jobs the kernel cannot run return blockhist.ErrFallbackToCPU.
func prepareJob(job *blockhist.ByteJob, limits gputypes.Limits) (*preparedJob, error) {
	active := len(job.Tables)
	r := job.Region
	switch {
	case active == 0, active > kernelMaxActive, active > job.Channels:
		return nil, blockhist.ErrFallbackToCPU
	case len(job.Output) < active:
		return nil, blockhist.ErrFallbackToCPU
	case r.Rows <= 0, r.RowPixels <= 0:
		return nil, blockhist.ErrFallbackToCPU
	}
	for ch := range active {
		if len(job.Output[ch]) > kernelBins || len(job.Tables[ch]) != kernelBins {
			return nil, blockhist.ErrFallbackToCPU
		}
	}

	extent := (r.Rows-1)*r.RowStrideSamples + r.RowPixels*job.Channels
	if extent > len(job.Samples) {
		return nil, blockhist.ErrFallbackToCPU
	}
	padded := (extent + 3) &^ 3
	if uint64(padded) > math.MaxUint32 || uint64(padded) > limits.MaxStorageBufferBindingSize {
		return nil, blockhist.ErrFallbackToCPU
	}

	samples := job.Samples[:extent]
	if padded != extent {
		samples = make([]byte, padded)
		copy(samples, job.Samples[:extent])
	}

	tiles := (r.RowPixels + kernelLanes*kernelPixelsPerLane - 1) / (kernelLanes * kernelPixelsPerLane)
	return &preparedJob{
		params: histogramParams{
			Channels:      uint32(job.Channels),          //nolint:gosec // bounded by extent check
			Active:        uint32(active),                //nolint:gosec // at most kernelMaxActive
			RowPixels:     uint32(r.RowPixels),           //nolint:gosec // bounded by extent check
			Rows:          uint32(r.Rows),                //nolint:gosec // bounded by extent check
			RowStride:     uint32(r.RowStrideSamples),    //nolint:gosec // bounded by extent check
			GridX:         uint32(min(tiles, maxGridX)),  //nolint:gosec // small
			GridY:         uint32(min(r.Rows, maxGridY)), //nolint:gosec // small
			PixelsPerLane: kernelPixelsPerLane,
		},
		samples: samples,
		tables:  encodeTables(job.Tables),
	}, nil
}

// encodeTables lays the lookup tables out channel-major, filling unused
// channels with -1.
func encodeTables(tables [][]int32) []byte {
	b := make([]byte, countersSize)
	for ch := range kernelMaxActive {
		for v := range kernelBins {
			bin := int32(-1)
			if ch < len(tables) {
				bin = tables[ch][v]
			}
			binary.LittleEndian.PutUint32(b[(ch*kernelBins+v)*4:], uint32(bin)) //nolint:gosec // two's complement i32
		}
	}
	return b
}

// unpackCounts copies the kernel output into out.
func unpackCounts(raw []byte, out [][]uint32) {
	for ch, h := range out {
		if ch >= kernelMaxActive {
			return
		}
		for b := range h {
			h[b] = binary.LittleEndian.Uint32(raw[(ch*kernelBins+b)*4:])
		}
	}
}
