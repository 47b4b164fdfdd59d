package refdevice

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gg/backend/native"
	"github.com/gogpu/gg/gpucore"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/types"

	"github.com/lumenray/lumenray/device"
)

// ErrAccelUnsupported is returned by CreateAccel: WebGPU has no
// hardware ray-tracing extension for gpucore.GPUAdapter to expose.
var ErrAccelUnsupported = errors.New("refdevice: acceleration structures are not supported by the wgpu/gpucore backend")

// dslBufferUsage is the buffer usage flags every compute-DSL allocation
// needs: storage-bound for kernel read/write, plus copy src/dst so the
// host can upload parameters and download results.
const dslBufferUsage = gpucore.BufferUsageStorage | gpucore.BufferUsageCopySrc | gpucore.BufferUsageCopyDst

type compiledKernel struct {
	pipeline gpucore.ComputePipelineID
	layout   gpucore.BindGroupLayoutID
}

// Device implements device.Device on top of a gpucore.GPUAdapter —
// bridged from a live hal.Device/hal.Queue pair via
// github.com/gogpu/gg/backend/native.HALAdapter, the same bridge the
// teacher repo uses to run its own rasterization pipeline over
// gogpu/wgpu. Adapter setup (selecting a physical adapter, requesting a
// logical device) is left to the caller, same as spec §6 leaves the
// rest of the DSL's host bring-up out of scope.
type Device struct {
	adapter gpucore.GPUAdapter

	nextID atomic.Uint64

	mu       sync.Mutex
	buffers  map[device.BufferID]gpucore.BufferID
	images   map[device.ImageID]gpucore.TextureID
	bindless map[device.BindlessArrayID]struct{}
	kernels  map[device.KernelHandle]compiledKernel
}

var _ device.Device = (*Device)(nil)

// New wraps an already-opened hal.Device/hal.Queue pair by bridging it
// through native.NewHALAdapter into a gpucore.GPUAdapter. A nil limits
// falls back to types.DefaultLimits(), same as NewHALAdapter itself.
func New(hd hal.Device, q hal.Queue, limits *types.Limits) *Device {
	return NewFromAdapter(native.NewHALAdapter(hd, q, limits))
}

// NewFromAdapter wraps an already-constructed gpucore.GPUAdapter
// directly, for callers that already have one (or a test double) rather
// than a raw hal.Device/hal.Queue pair.
func NewFromAdapter(adapter gpucore.GPUAdapter) *Device {
	return &Device{
		adapter:  adapter,
		buffers:  make(map[device.BufferID]gpucore.BufferID),
		images:   make(map[device.ImageID]gpucore.TextureID),
		bindless: make(map[device.BindlessArrayID]struct{}),
		kernels:  make(map[device.KernelHandle]compiledKernel),
	}
}

func (d *Device) id() uint64 {
	return d.nextID.Add(1)
}

func (d *Device) CreateBufferRaw(elemSize, n int) (device.BufferID, error) {
	gid, err := d.adapter.CreateBuffer(elemSize*n, dslBufferUsage)
	if err != nil {
		return 0, fmt.Errorf("refdevice: create buffer: %w", err)
	}
	id := device.BufferID(d.id())
	d.mu.Lock()
	d.buffers[id] = gid
	d.mu.Unlock()
	return id, nil
}

// ImportExternalBufferRaw makes pinned host memory available as a
// device buffer by copying it. gpucore.GPUAdapter, like every WebGPU implementation
// it is built from, has no host-pointer import path — a WebGPU buffer
// is always device-allocated and populated via WriteBuffer — so this
// falls back to an ordinary allocation plus an immediate upload, which
// gives every caller the same post-condition (device-resident data) at
// the cost of one extra copy on import.
func (d *Device) ImportExternalBufferRaw(ptr uintptr, elemSize, n int) (device.BufferID, error) {
	id, err := d.CreateBufferRaw(elemSize, n)
	if err != nil {
		return 0, err
	}
	data := unsafeBytesFromPtr(ptr, uint64(elemSize)*uint64(n))
	d.adapter.WriteBuffer(d.buffers[id], 0, data)
	return id, nil
}

func (d *Device) CreateImage(format device.ImageFormat, size [2]uint32) (device.ImageID, error) {
	gpuFormat, err := gpucoreTextureFormat(format)
	if err != nil {
		return 0, err
	}
	gid, err := d.adapter.CreateTexture(int(size[0]), int(size[1]), gpuFormat)
	if err != nil {
		return 0, fmt.Errorf("refdevice: create image: %w", err)
	}
	id := device.ImageID(d.id())
	d.mu.Lock()
	d.images[id] = gid
	d.mu.Unlock()
	return id, nil
}

func (d *Device) CreateAccel(device.AccelOptions) (device.AccelID, error) {
	return 0, ErrAccelUnsupported
}

// CreateBindlessArray allocates a bookkeeping slot only: gpucore has no
// single "bindless array" resource of its own (WebGPU has none either);
// the indirection spec §6 asks for is built by assembling a
// gpucore.BindGroupDesc from the buffers/images registered here, which
// is exactly the step Stream.Commit's DispatchCommand handling declines
// to do automatically (see doc.go).
func (d *Device) CreateBindlessArray() (device.BindlessArrayID, error) {
	id := device.BindlessArrayID(d.id())
	d.mu.Lock()
	d.bindless[id] = struct{}{}
	d.mu.Unlock()
	return id, nil
}

// Compile lowers a WGSL kernel to SPIR-V via naga.Compile and builds a
// single-entry-point compute pipeline through gpucore.GPUAdapter's
// CreateShaderModule -> CreateBindGroupLayout -> CreatePipelineLayout ->
// CreateComputePipeline chain, the same chain
// backend/native/adapter.go's HALAdapter exposes over gogpu/wgpu/hal.
func (d *Device) Compile(kernel device.Kernel) (device.KernelHandle, error) {
	wk, ok := kernel.(WGSLKernel)
	if !ok {
		return 0, fmt.Errorf("refdevice: Compile: kernel %q is not a refdevice.WGSLKernel", kernel.Name())
	}

	spirv, err := compileWGSL(wk.Source)
	if err != nil {
		return 0, fmt.Errorf("refdevice: compile %q: %w", wk.Name(), err)
	}

	shaderID, err := d.adapter.CreateShaderModule(spirv, wk.Name())
	if err != nil {
		return 0, fmt.Errorf("refdevice: shader module %q: %w", wk.Name(), err)
	}

	layoutID, err := d.adapter.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Label:   wk.Name() + "-layout",
		Entries: wk.BindGroupLayout,
	})
	if err != nil {
		return 0, fmt.Errorf("refdevice: bind group layout %q: %w", wk.Name(), err)
	}

	pipelineLayoutID, err := d.adapter.CreatePipelineLayout([]gpucore.BindGroupLayoutID{layoutID})
	if err != nil {
		return 0, fmt.Errorf("refdevice: pipeline layout %q: %w", wk.Name(), err)
	}

	pipelineID, err := d.adapter.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:        wk.Name(),
		Layout:       pipelineLayoutID,
		ShaderModule: shaderID,
		EntryPoint:   wk.EntryPoint,
	})
	if err != nil {
		return 0, fmt.Errorf("refdevice: compute pipeline %q: %w", wk.Name(), err)
	}

	id := device.KernelHandle(d.id())
	d.mu.Lock()
	d.kernels[id] = compiledKernel{pipeline: pipelineID, layout: layoutID}
	d.mu.Unlock()
	return id, nil
}

func (d *Device) CreateStream() (device.Stream, error) {
	return &Stream{device: d}, nil
}

func (d *Device) DestroyBuffer(id device.BufferID) {
	d.mu.Lock()
	gid, ok := d.buffers[id]
	delete(d.buffers, id)
	d.mu.Unlock()
	if ok {
		d.adapter.DestroyBuffer(gid)
	}
}

func (d *Device) DestroyImage(id device.ImageID) {
	d.mu.Lock()
	gid, ok := d.images[id]
	delete(d.images, id)
	d.mu.Unlock()
	if ok {
		d.adapter.DestroyTexture(gid)
	}
}

func (d *Device) DestroyAccel(device.AccelID) {}

func (d *Device) DestroyBindlessArray(id device.BindlessArrayID) {
	d.mu.Lock()
	delete(d.bindless, id)
	d.mu.Unlock()
}

// gpucoreTextureFormat maps spec §6's float/half/uint image element
// types onto gpucore.TextureFormat. gpucore only models a floating
// point storage format (RGBA32Float) for images written by a compute
// kernel — it has no half-float or raw-uint storage format in its
// texture enum, only normalized 8-bit and plain 32-bit float formats —
// so Half and Uint report an error rather than silently rounding to a
// format that would corrupt every other element's bit pattern.
func gpucoreTextureFormat(f device.ImageFormat) (gpucore.TextureFormat, error) {
	if f == device.ImageFormatFloat {
		return gpucore.TextureFormatRGBA32Float, nil
	}
	return 0, fmt.Errorf("refdevice: image format %v has no gpucore equivalent (this backend only supports float images)", f)
}
