// Package refdevice is one concrete wiring of the device.Device contract
// onto github.com/gogpu/gg/gpucore, the public "shared GPU abstraction"
// the teacher repo itself built to decouple its rendering algorithms from
// any one GPU binding. Rather than talking to github.com/gogpu/wgpu/hal
// directly, this package leans on the teacher's own
// github.com/gogpu/gg/backend/native.HALAdapter to bridge a live
// hal.Device/hal.Queue pair into a gpucore.GPUAdapter, and then adapts
// that adapter's resource calls onto device.Device — the same
// HAL-to-gpucore bridging backend/native/adapter.go performs for the
// teacher's own 2D rasterizer, reused here instead of re-derived.
//
// Kernels are compiled from WGSL through github.com/gogpu/naga the way
// backend/wgpu/gpu_fine.go compiles its embedded fine-rasterization
// shader: naga.Compile lowers WGSL source to SPIR-V words, which
// gpucore.GPUAdapter.CreateShaderModule then accepts directly.
//
// It is not wired into anything in this module by default — scene-file
// parsing and GPU kernel execution are both out of scope (spec §6) — but
// a caller that has already compiled a scene and a set of WGSL kernels
// can use refdevice.New as its device.Device.
//
// Two parts of the contract this backend cannot honor in full:
//
//   - Acceleration structures: WebGPU (and so gogpu/wgpu and gogpu/gg)
//     has no hardware ray-tracing extension. CreateAccel returns
//     ErrAccelUnsupported instead of pretending to build a structure no
//     kernel could trace against.
//   - Per-dispatch bind groups: spec §6 models buffer access through a
//     bindless array baked into kernel arguments, not WebGPU's
//     bind-group-per-dispatch model gpucore.GPUAdapter exposes. This
//     backend compiles kernels and tracks resources, but Stream.Commit
//     reports an error on DispatchCommand rather than silently
//     fabricating an empty bind group — assembling the real one needs
//     the bindless-array-to-bind-group translation a caller that
//     actually populates bindless arrays would supply.
package refdevice
