//go:build !nogpu

// Package gpu registers the GPU histogram accelerator.
//
// Import this package to run 8-bit histograms as wgpu/hal compute
// dispatches. Launches the accelerator cannot express (wider samples,
// caller-supplied streams, more than four active channels) keep running on
// the CPU engine.
//
// If GPU initialization fails (no Vulkan device available, or the device
// fails its self-check), the accelerator stays registered but declines
// every launch, and histograms are computed on the CPU.
//
// Usage:
//
//	import _ "github.com/gogpu/blockhist/gpu" // enable GPU histograms
package gpu

import (
	"github.com/gogpu/blockhist"
	gpuimpl "github.com/gogpu/blockhist/internal/gpu"
)

func init() {
	if err := blockhist.RegisterAccelerator(&gpuimpl.HistogramAccelerator{}); err != nil {
		blockhist.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider configures the GPU accelerator to use a shared GPU device
// from an external provider (e.g., gogpu). This avoids creating a separate
// GPU instance.
//
// The provider must expose HalDevice() and HalQueue() returning hal.Device
// and hal.Queue. If it is also a gpucontext.DeviceProvider reporting a
// software adapter, histograms stay on the CPU.
func SetDeviceProvider(provider any) error {
	return blockhist.SetAcceleratorDeviceProvider(provider)
}
