//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"unsafe"

	"github.com/gogpu/blockhist"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

//go:embed shaders/histogram.wgsl
var histogramShaderSource string

// errSelfCheck reports a device whose kernel output disagrees with the host.
var errSelfCheck = errors.New("kernel self-check mismatch")

// HistogramAccelerator runs 8-bit block histograms as wgpu/hal compute
// dispatches. It implements the blockhist.GPUAccelerator interface.
//
// One dispatch handles one launch: samples, lookup tables and a zeroed
// output buffer are uploaded, every work group privatizes its counters in
// workgroup memory, and the merged counts are read back through a staging
// buffer.
type HistogramAccelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	limits   gputypes.Limits

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	adapterName    string
	gpuReady       bool
	externalDevice bool // true when using shared device (don't destroy on Close)
}

var _ blockhist.GPUAccelerator = (*HistogramAccelerator)(nil)

func (a *HistogramAccelerator) Name() string { return "wgpu-histogram" }

func (a *HistogramAccelerator) CanAccelerate(op blockhist.AcceleratedOp) bool {
	if op&blockhist.AccelByteHistogram == 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady
}

// SetLogger sets the logger for the GPU accelerator.
// Called by blockhist.SetLogger to propagate logging configuration.
func (a *HistogramAccelerator) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// Init opens a device. A missing or unusable GPU is not an error: the
// accelerator stays registered and every launch falls back to the CPU.
func (a *HistogramAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.initGPU(); err != nil {
		slogger().Warn("gpu-histogram: GPU init failed, using CPU fallback", "err", err)
		a.releaseLocked()
	}
	return nil
}

func (a *HistogramAccelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
}

func (a *HistogramAccelerator) releaseLocked() {
	a.destroyPipelines()
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.instance = nil
	a.queue = nil
	a.gpuReady = false
	a.externalDevice = false
	a.adapterName = ""
}

// SetDeviceProvider switches the accelerator to a shared GPU device from an
// external provider (e.g., gogpu). The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
//
// If the provider is a gpucontext.DeviceProvider backed by a software
// adapter, the accelerator disables itself: the CPU engine outruns a
// shader interpreter.
func (a *HistogramAccelerator) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu-histogram: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu-histogram: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu-histogram: provider HalQueue is not hal.Queue")
	}
	name := "shared"
	software := false
	if dp, ok := provider.(gpucontext.DeviceProvider); ok {
		info := dp.AdapterInfo()
		if info.Name != "" {
			name = info.Name
		}
		software = info.Type == gpucontext.AdapterTypeSoftware
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.releaseLocked()
	if software {
		slogger().Info("gpu-histogram: software adapter, histograms stay on CPU", "adapter", name)
		return nil
	}

	a.device = device
	a.queue = queue
	a.limits = gputypes.DefaultLimits()
	a.externalDevice = true
	a.adapterName = name

	if err := a.createPipelines(); err != nil {
		a.releaseLocked()
		return fmt.Errorf("gpu-histogram: create pipelines with shared device: %w", err)
	}
	a.gpuReady = true
	slogger().Info("gpu-histogram: switched to shared GPU device", "adapter", name)
	return nil
}

// HistogramBytes runs job on the GPU and blocks until the counts are in
// job.Output.
func (a *HistogramAccelerator) HistogramBytes(ctx context.Context, job *blockhist.ByteJob) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return blockhist.ErrFallbackToCPU
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	pj, err := prepareJob(job, a.limits)
	if err != nil {
		return err
	}
	raw, err := a.dispatch(pj)
	if err != nil {
		return fmt.Errorf("gpu-histogram: %w", err)
	}
	unpackCounts(raw, job.Output[:pj.params.Active])
	return nil
}

func (a *HistogramAccelerator) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Backends: gputypes.BackendsVulkan})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	a.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	i := slices.IndexFunc(adapters, func(e hal.ExposedAdapter) bool {
		return e.Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			e.Info.DeviceType == gputypes.DeviceTypeIntegratedGPU
	})
	if i < 0 {
		return fmt.Errorf("no hardware GPU adapter among %d", len(adapters))
	}
	selected := &adapters[i]
	a.limits = gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), a.limits)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue
	a.adapterName = selected.Info.Name
	if err := a.createPipelines(); err != nil {
		return fmt.Errorf("create pipelines: %w", err)
	}
	if err := a.selfCheck(); err != nil {
		return err
	}
	a.gpuReady = true
	slogger().Info("gpu-histogram: GPU accelerator initialized", "adapter", a.adapterName)
	return nil
}

// selfCheck runs a small launch and compares it with a host count. Compilers
// that mishandle nested loops fail here instead of producing wrong counts.
func (a *HistogramAccelerator) selfCheck() error {
	const (
		channels  = 4
		rowPixels = 3000
		rows      = 3
	)
	samples := make([]uint8, rowPixels*rows*channels)
	for i := range samples {
		samples[i] = uint8(i * 7 % 251) //nolint:gosec // < 251
	}
	identity := make([]int32, kernelBins)
	for v := range identity {
		identity[v] = int32(v) //nolint:gosec // < 256
	}
	want := make([]uint32, kernelBins)
	for i := 0; i < len(samples); i += channels {
		want[samples[i]]++
	}
	got := [][]uint32{make([]uint32, kernelBins)}
	job := &blockhist.ByteJob{
		Samples:  samples,
		Channels: channels,
		Region:   blockhist.Region{RowPixels: rowPixels, Rows: rows, RowStrideSamples: rowPixels * channels},
		Tables:   [][]int32{identity},
		Output:   got,
	}
	pj, err := prepareJob(job, a.limits)
	if err != nil {
		return fmt.Errorf("self-check: %w", err)
	}
	raw, err := a.dispatch(pj)
	if err != nil {
		return fmt.Errorf("self-check: %w", err)
	}
	unpackCounts(raw, got)
	if !slices.Equal(got[0], want) {
		return errSelfCheck
	}
	return nil
}

func (a *HistogramAccelerator) createPipelines() error {
	if a.limits.MaxComputeWorkgroupStorageSize < countersSize ||
		a.limits.MaxComputeInvocationsPerWorkgroup < kernelLanes {
		return fmt.Errorf("device limits too small for %d lanes and %d counter bytes", kernelLanes, countersSize)
	}

	shader, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "histogram",
		Source: hal.ShaderSource{WGSL: histogramShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile histogram shader: %w", err)
	}
	a.shader = shader

	bindLayout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "histogram_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	a.bindLayout = bindLayout

	pipeLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "histogram_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{a.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	a.pipeLayout = pipeLayout

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "histogram_pipeline", Layout: a.pipeLayout,
		Compute: hal.ComputeState{Module: a.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	a.pipeline = pipeline
	return nil
}

func (a *HistogramAccelerator) destroyPipelines() {
	if a.device == nil {
		return
	}
	if a.pipeline != nil {
		a.device.DestroyComputePipeline(a.pipeline)
		a.pipeline = nil
	}
	if a.pipeLayout != nil {
		a.device.DestroyPipelineLayout(a.pipeLayout)
		a.pipeLayout = nil
	}
	if a.bindLayout != nil {
		a.device.DestroyBindGroupLayout(a.bindLayout)
		a.bindLayout = nil
	}
	if a.shader != nil {
		a.device.DestroyShaderModule(a.shader)
		a.shader = nil
	}
}

// dispatchBuffers holds the per-launch buffers.
type dispatchBuffers struct {
	params, samples, tables, output, staging hal.Buffer
}

func (a *HistogramAccelerator) destroyBuffers(b *dispatchBuffers) {
	for _, buf := range []hal.Buffer{b.params, b.samples, b.tables, b.output, b.staging} {
		if buf != nil {
			a.device.DestroyBuffer(buf)
		}
	}
}

func (a *HistogramAccelerator) createBuffer(label string, size uint64, usage gputypes.BufferUsage, data []byte) (hal.Buffer, error) {
	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{Label: label, Size: size, Usage: usage})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer: %w", label, err)
	}
	if data != nil {
		// MapWrite buffers are host-visible, so HAL-level writes land directly.
		if err := a.queue.WriteBuffer(buf, 0, data); err != nil {
			a.device.DestroyBuffer(buf)
			return nil, fmt.Errorf("write %s buffer: %w", label, err)
		}
	}
	return buf, nil
}

// dispatch uploads pj, runs the kernel and returns the raw output counters.
func (a *HistogramAccelerator) dispatch(pj *preparedJob) ([]byte, error) {
	var (
		bufs dispatchBuffers
		err  error
	)
	defer a.destroyBuffers(&bufs)

	const input = gputypes.BufferUsageStorage | gputypes.BufferUsageMapWrite
	if bufs.params, err = a.createBuffer("histogram_params", paramsSize,
		gputypes.BufferUsageUniform|gputypes.BufferUsageMapWrite, pj.params.bytes()); err != nil {
		return nil, err
	}
	samplesSize := uint64(len(pj.samples))
	if bufs.samples, err = a.createBuffer("histogram_samples", samplesSize, input, pj.samples); err != nil {
		return nil, err
	}
	if bufs.tables, err = a.createBuffer("histogram_tables", countersSize, input, pj.tables); err != nil {
		return nil, err
	}
	if bufs.output, err = a.createBuffer("histogram_output", countersSize,
		input|gputypes.BufferUsageCopySrc, make([]byte, countersSize)); err != nil {
		return nil, err
	}
	if bufs.staging, err = a.createBuffer("histogram_staging", countersSize,
		gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst, nil); err != nil {
		return nil, err
	}

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "histogram_bind", Layout: a.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: bufs.params.NativeHandle(), Offset: 0, Size: paramsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: bufs.samples.NativeHandle(), Offset: 0, Size: samplesSize}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: bufs.tables.NativeHandle(), Offset: 0, Size: countersSize}},
			{Binding: 3, Resource: gputypes.BufferBinding{Buffer: bufs.output.NativeHandle(), Offset: 0, Size: countersSize}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	defer a.device.DestroyBindGroup(bg)

	if err := a.submit(bg, pj.params, bufs.output, bufs.staging); err != nil {
		return nil, err
	}

	mapping, err := a.device.MapBuffer(bufs.staging, 0, countersSize)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	raw := make([]byte, countersSize)
	copy(raw, unsafe.Slice((*byte)(mapping.Ptr), countersSize)) //nolint:gosec // mapping covers countersSize bytes
	if err := a.device.UnmapBuffer(bufs.staging); err != nil {
		return nil, fmt.Errorf("unmap staging buffer: %w", err)
	}
	return raw, nil
}

// submit encodes one compute pass plus the readback copy and waits for it.
func (a *HistogramAccelerator) submit(bg hal.BindGroup, p histogramParams, output, staging hal.Buffer) error {
	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "histogram_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("histogram"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "histogram_pass"})
	pass.SetPipeline(a.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(p.GridX, p.GridY, 1)
	pass.End()

	encoder.CopyBufferToBuffer(output, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: countersSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	subIdx, err := a.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := a.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if done := a.queue.PollCompleted(); done < subIdx {
		return fmt.Errorf("submission %d not complete (last %d)", subIdx, done)
	}
	return nil
}
