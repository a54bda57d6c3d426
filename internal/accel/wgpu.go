//go:build !nogpu

package accel

import (
	"fmt"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
	"time"
)

// DefaultDispatchTimeout bounds the wait for one dispatch to finish.
const DefaultDispatchTimeout = 2 * time.Minute

// WGPU runs kernels on a GPU through the wgpu HAL.
type WGPU struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	limits   gputypes.Limits
	adapter  string

	// Timeout bounds how long Dispatch waits for the device.
	Timeout time.Duration

	kernels []*wgpuKernel
	buffers []*wgpuBuffer

	externalDevice bool // don't destroy the device on Close
	closed         bool
}

var _ Accelerator = (*WGPU)(nil)

type wgpuKernel struct {
	entry      string
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

func (k *wgpuKernel) EntryPoint() string { return k.entry }

// wgpuBuffer pairs the storage buffer the kernel writes with the staging
// buffer it is copied into for readback.
type wgpuBuffer struct {
	size    uint64
	storage hal.Buffer
	staging hal.Buffer
}

func (b *wgpuBuffer) Size() uint64 { return b.size }

// NewWGPU wraps an already opened device. Close releases the accelerator's
// own resources but leaves the device to its owner.
func NewWGPU(device hal.Device, queue hal.Queue) *WGPU {
	return &WGPU{
		device:         device,
		queue:          queue,
		limits:         gputypes.DefaultLimits(),
		adapter:        "external",
		Timeout:        DefaultDispatchTimeout,
		externalDevice: true,
	}
}

func openWGPU() (Accelerator, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoDevice)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrNoDevice, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no GPU adapters found", ErrNoDevice)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %w", ErrNoDevice, err)
	}

	slogger().Info("GPU accelerator initialized", "adapter", selected.Info.Name)

	return &WGPU{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		limits:   limits,
		adapter:  selected.Info.Name,
		Timeout:  DefaultDispatchTimeout,
	}, nil
}

func (a *WGPU) Name() string {
	return "wgpu (" + a.adapter + ")"
}

// Compile builds a compute pipeline for WGSL source. The kernel binds its
// parameter block at binding 0 and its output at binding 1.
func (a *WGPU) Compile(source string) (Kernel, error) {
	if a.closed {
		return nil, ErrClosed
	}
	if err := checkEntryPoint(source); err != nil {
		return nil, err
	}

	k := &wgpuKernel{entry: EntryPoint}
	if err := a.createPipeline(k, source); err != nil {
		a.destroyKernel(k)
		return nil, fmt.Errorf("%w: %w", ErrKernelBuild, err)
	}

	a.kernels = append(a.kernels, k)
	return k, nil
}

func (a *WGPU) createPipeline(k *wgpuKernel, source string) error {
	shader, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "mandelbrot",
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return fmt.Errorf("compile mandelbrot shader: %w", err)
	}
	k.shader = shader

	bindLayout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "mandelbrot_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	k.bindLayout = bindLayout

	pipeLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "mandelbrot_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{k.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	k.pipeLayout = pipeLayout

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "mandelbrot_pipeline", Layout: k.pipeLayout,
		Compute: hal.ComputeState{Module: k.shader, EntryPoint: k.entry},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	k.pipeline = pipeline

	return nil
}

func (a *WGPU) AllocateBuffer(size uint64) (Buffer, error) {
	if a.closed {
		return nil, ErrClosed
	}
	// The output is bound whole as a storage buffer, so the binding limit
	// applies as well as the allocation limit.
	if limit := min(a.limits.MaxBufferSize, a.limits.MaxStorageBufferBindingSize); size > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds device limit %d", ErrOutOfDeviceMemory, size, limit)
	}

	storage, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mandelbrot_output", Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create storage buffer: %w", ErrOutOfDeviceMemory, err)
	}

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mandelbrot_staging", Size: size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		a.device.DestroyBuffer(storage)
		return nil, fmt.Errorf("%w: create staging buffer: %w", ErrOutOfDeviceMemory, err)
	}

	b := &wgpuBuffer{size: size, storage: storage, staging: staging}
	a.buffers = append(a.buffers, b)
	return b, nil
}

// Dispatch runs k in workgroups of WorkgroupSize square and copies the output
// to its staging buffer. It blocks until the device signals completion.
func (a *WGPU) Dispatch(k Kernel, global [2]uint32, args KernelArgs) error {
	if a.closed {
		return ErrClosed
	}
	kernel, ok := k.(*wgpuKernel)
	if !ok {
		return fmt.Errorf("%w: kernel %T was not compiled by this accelerator", ErrInvalidDispatch, k)
	}
	out, ok := args.Output.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("%w: buffer %T was not allocated by this accelerator", ErrInvalidDispatch, args.Output)
	}
	if err := args.validate(global); err != nil {
		return err
	}

	uniform, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mandelbrot_params", Size: UniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	defer a.device.DestroyBuffer(uniform)
	a.queue.WriteBuffer(uniform, 0, args.Uniform())

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "mandelbrot_bind", Layout: kernel.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: uniform.NativeHandle(), Offset: 0, Size: UniformSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: out.storage.NativeHandle(), Offset: 0, Size: out.size}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer a.device.DestroyBindGroup(bg)

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "mandelbrot_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("mandelbrot"); err != nil {
		encoder.Destroy()
		return fmt.Errorf("begin encoding: %w", err)
	}

	computePass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "mandelbrot_pass"})
	computePass.SetPipeline(kernel.pipeline)
	computePass.SetBindGroup(0, bg, nil)
	computePass.Dispatch((global[0]+WorkgroupSize-1)/WorkgroupSize, (global[1]+WorkgroupSize-1)/WorkgroupSize, 1)
	computePass.End()

	encoder.CopyBufferToBuffer(out.storage, out.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: out.size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	fence, err := a.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer a.device.DestroyFence(fence)

	start := time.Now()
	if err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := a.device.Wait(fence, 1, a.Timeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !fenceOK {
		return fmt.Errorf("wait for GPU: no completion after %v", a.Timeout)
	}

	slogger().Debug("GPU dispatch",
		"width", args.Width,
		"height", args.Height,
		"workgroups", [2]uint32{(global[0] + WorkgroupSize - 1) / WorkgroupSize, (global[1] + WorkgroupSize - 1) / WorkgroupSize},
		"elapsed", time.Since(start),
	)
	return nil
}

func (a *WGPU) ReadBack(b Buffer) ([]byte, error) {
	if a.closed {
		return nil, ErrClosed
	}
	buf, ok := b.(*wgpuBuffer)
	if !ok {
		return nil, fmt.Errorf("%w: buffer %T was not allocated by this accelerator", ErrInvalidDispatch, b)
	}

	data := make([]byte, buf.size)
	if err := a.queue.ReadBuffer(buf.staging, 0, data); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	return data, nil
}

// Close destroys buffers, then pipelines, then the device and instance it
// opened.
func (a *WGPU) Close() {
	if a.closed {
		return
	}
	a.closed = true

	for i := len(a.buffers) - 1; i >= 0; i-- {
		a.device.DestroyBuffer(a.buffers[i].staging)
		a.device.DestroyBuffer(a.buffers[i].storage)
	}
	a.buffers = nil

	for i := len(a.kernels) - 1; i >= 0; i-- {
		a.destroyKernel(a.kernels[i])
	}
	a.kernels = nil

	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.queue = nil
	a.instance = nil
}

func (a *WGPU) destroyKernel(k *wgpuKernel) {
	if k.pipeline != nil {
		a.device.DestroyComputePipeline(k.pipeline)
	}
	if k.pipeLayout != nil {
		a.device.DestroyPipelineLayout(k.pipeLayout)
	}
	if k.bindLayout != nil {
		a.device.DestroyBindGroupLayout(k.bindLayout)
	}
	if k.shader != nil {
		a.device.DestroyShaderModule(k.shader)
	}
}
