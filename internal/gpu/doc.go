//go:build !nogpu

// Package gpu implements the blockhist GPU accelerator on wgpu/hal.
//
// HistogramAccelerator runs 8-bit block histograms as a single compute
// dispatch per launch. The kernel in shaders/histogram.wgsl mirrors the CPU
// engine: one workgroup per execution group, privatized counters in
// workgroup memory, blocked tiles of pixels per lane, and a merge through
// per-channel lookup tables built from the launch's decoders.
//
// The accelerator validates itself against a host count during Init.
// Devices that fail, software adapters, and launches the kernel cannot
// express all report blockhist.ErrFallbackToCPU, and the CPU engine runs
// instead.
//
// This is an internal package. Users enable it with a blank import of
// github.com/gogpu/blockhist/gpu.
package gpu
