package device

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// HostProvider is the seam a host application uses to hand the pipeline
// orchestrator an already-open GPU device instead of letting it create
// one, mirroring the teacher's render.DeviceHandle: "gg RECEIVES the
// device from the host, it does NOT create one." It is a distinct
// concern from Device above — Device is the resource-creation contract
// a backend like backend/refdevice implements from scratch; HostProvider
// is how an embedder that already owns a gpucontext.Device plugs that
// device in instead.
type HostProvider = gpucontext.DeviceProvider

// HostDevice, HostQueue and HostAdapter alias the gpucontext resource
// handles a HostProvider exposes.
type (
	HostDevice  = gpucontext.Device
	HostQueue   = gpucontext.Queue
	HostAdapter = gpucontext.Adapter
)

// NullHostProvider is a HostProvider with nil device/queue/adapter,
// for CPU-only configurations — the direct port of the teacher's
// render.NullDeviceHandle.
type NullHostProvider struct{}

func (NullHostProvider) Device() HostDevice   { return nil }
func (NullHostProvider) Queue() HostQueue     { return nil }
func (NullHostProvider) Adapter() HostAdapter { return nil }
func (NullHostProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

var _ HostProvider = NullHostProvider{}
