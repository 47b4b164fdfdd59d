package refdevice

import (
	"fmt"

	"github.com/gogpu/gg/gpucore"
	"github.com/gogpu/naga"

	"github.com/lumenray/lumenray/device"
)

// WGSLKernel is a device.Kernel backed by WGSL source text, the shader
// language every gogpu/wgpu target (Vulkan, Metal, DX12) is compiled
// from via naga, mirroring how backend/wgpu/gpu_fine.go embeds its
// fine.wgsl source and compiles it at rasterizer construction time.
// BindGroupLayout lists the kernel's buffer/texture bindings in the
// single bind group this backend allocates per kernel; EntryPoint names
// the @compute function naga.Compile should lower.
type WGSLKernel struct {
	KernelName      string
	Source          string
	EntryPoint      string
	BindGroupLayout []gpucore.BindGroupLayoutEntry
}

func (k WGSLKernel) Name() string { return k.KernelName }

var _ device.Kernel = WGSLKernel{}

// compileWGSL lowers WGSL source to SPIR-V words via naga.Compile,
// unpacking the little-endian byte stream the same way
// GPUFineRasterizer.init does for its embedded shader.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("naga compile: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
