// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blockhist

import (
	"context"
	"errors"
	"sync"
)

// ErrFallbackToCPU indicates the GPU accelerator cannot handle this launch.
// The caller transparently falls back to the CPU engine.
var ErrFallbackToCPU = errors.New("blockhist: falling back to CPU histogram")

// AcceleratedOp describes launch kinds for GPU capability checking.
type AcceleratedOp uint32

const (
	// AccelByteHistogram represents histograms of 8-bit samples.
	AccelByteHistogram AcceleratedOp = 1 << iota
)

// ByteJob is an 8-bit histogram launch handed to an accelerator.
//
// Samples holds interleaved pixels of Channels samples; the first
// len(Tables) channels are histogrammed over Region. Tables[ch][v] is the
// output bin of sample value v in channel ch, or -1 if the value is not
// counted. Output[ch] is zeroed by the caller and receives the counts.
type ByteJob struct {
	Samples  []uint8
	Channels int
	Region   Region
	Tables   [][]int32
	Output   [][]uint32
}

// GPUAccelerator is an optional GPU histogram provider.
//
// When registered via RegisterAccelerator, 8-bit launches try the
// accelerator first. If it returns ErrFallbackToCPU or any other error the
// launch transparently runs on the CPU engine. An accelerator chooses its
// own geometry and counter placement; the caller's Policy is not passed to
// it.
//
// Users opt in via blank import:
//
//	import _ "github.com/gogpu/blockhist/gpu"
type GPUAccelerator interface {
	// Name returns the accelerator name (e.g., "wgpu-vulkan").
	Name() string

	// Init initializes GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// CanAccelerate reports whether the accelerator supports op.
	CanAccelerate(op AcceleratedOp) bool

	// HistogramBytes runs job to completion.
	// Returns ErrFallbackToCPU if the job cannot be accelerated.
	HistogramBytes(ctx context.Context, job *ByteJob) error
}

// DeviceProviderAware is an optional interface for accelerators that can
// share a GPU device with an external provider (e.g., a gogpu window).
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   GPUAccelerator
)

// RegisterAccelerator registers a GPU accelerator.
//
// Only one accelerator can be registered; later calls replace and close the
// previous one. Init is called during registration, and if it fails the
// accelerator is not registered and the error is returned.
//
// Typical usage via blank import in GPU backend packages:
//
//	func init() {
//	    blockhist.RegisterAccelerator(NewAccelerator())
//	}
func RegisterAccelerator(a GPUAccelerator) error {
	if a == nil {
		return errors.New("blockhist: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())

	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	Logger().Info("blockhist: accelerator registered", "name", a.Name())
	return nil
}

// Accelerator returns the registered GPU accelerator, or nil if none.
func Accelerator() GPUAccelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// SetAcceleratorDeviceProvider passes a device provider to the registered
// accelerator so it shares the provider's GPU device. It is a no-op when no
// accelerator is registered or the accelerator cannot share devices.
func SetAcceleratorDeviceProvider(provider any) error {
	a := Accelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}

// composeTables folds the privatized and output decoders of 8-bit channels
// into per-value lookup tables. ok is false when a decoder breaks its bin
// range; the CPU engine then reports the failure.
func composeTables(hists []Channel[uint8]) (tables [][]int32, ok bool) {
	tables = make([][]int32, len(hists))
	for ch, h := range hists {
		t := make([]int32, ByteBins)
		for v := range t {
			t[v] = -1
			b, valid := h.Privatized.Bin(uint8(v))
			if !valid {
				continue
			}
			if b < 0 || b >= h.PrivatizedBins {
				return nil, false
			}
			o, valid := h.Output.Bin(b)
			if !valid {
				continue
			}
			if o < 0 || o >= h.OutputBins {
				return nil, false
			}
			t[v] = int32(o)
		}
		tables[ch] = t
	}
	return tables, true
}

// tryAccelerator offers an 8-bit launch to the registered accelerator. It
// reports whether out now holds the result; on false out is zeroed.
func tryAccelerator[S any](ctx context.Context, samples Stream[S], channels int, r Region, hists []Channel[S], p Policy, out [][]uint32) bool {
	a := Accelerator()
	if a == nil || !a.CanAccelerate(AccelByteHistogram) {
		return false
	}
	ns, ok := any(samples).(NativeStream[uint8])
	if !ok {
		return false
	}
	byteHists, ok := any(hists).([]Channel[uint8])
	if !ok {
		return false
	}
	tables, ok := composeTables(byteHists)
	if !ok {
		return false
	}

	job := &ByteJob{
		Samples:  ns.Samples(),
		Channels: channels,
		Region:   r,
		Tables:   tables,
		Output:   out,
	}
	err := a.HistogramBytes(ctx, job)
	if err == nil {
		Logger().Debug("blockhist: accelerated histogram, CPU policy not applied",
			"accelerator", a.Name(), "rows", r.Rows, "row_pixels", r.RowPixels,
			"placement", p.Placement, "scheduling", p.Scheduling, "accumulation", p.Accumulation)
		return true
	}
	for _, h := range out {
		clear(h)
	}
	if !errors.Is(err, ErrFallbackToCPU) {
		Logger().Warn("blockhist: accelerator failed, falling back to CPU",
			"accelerator", a.Name(), "err", err)
	}
	return false
}
