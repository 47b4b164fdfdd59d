package refdevice

import (
	"fmt"

	"github.com/lumenray/lumenray/device"
)

// Stream implements device.Stream by queuing host-side command structs
// and translating them to gpucore.GPUAdapter calls on Commit, matching
// spec §6's "stream << command << ...; commit() flushes; synchronize()
// waits" ordering contract. A Stream is single-use per Commit/Synchronize
// pair, same as a WebGPU command encoder.
type Stream struct {
	device  *Device
	pending []device.Command
}

var _ device.Stream = (*Stream)(nil)

func (s *Stream) Enqueue(cmd device.Command) {
	s.pending = append(s.pending, cmd)
}

// Commit translates every queued command to a gpucore.GPUAdapter call, in
// order, then submits them as one batch. Kernel dispatch requires a bind
// group this backend does not assemble per-dispatch — spec §6's
// bindless-array binding has no WebGPU bind-group-per-dispatch
// equivalent baked into device.DispatchCommand, so the caller would need
// to supply the bindless-array-to-bind-group translation itself (see
// doc.go) — so dispatch and accel build both report an error rather than
// silently no-op.
func (s *Stream) Commit() error {
	defer func() { s.pending = nil }()

	for _, cmd := range s.pending {
		switch c := cmd.(type) {
		case device.BufferUploadCommand:
			gid, ok := s.device.buffers[c.Buffer]
			if !ok {
				return fmt.Errorf("refdevice: commit: unknown buffer %d", c.Buffer)
			}
			s.device.adapter.WriteBuffer(gid, c.Offset, c.Data)
		case device.BufferDownloadCommand:
			gid, ok := s.device.buffers[c.Buffer]
			if !ok {
				return fmt.Errorf("refdevice: commit: unknown buffer %d", c.Buffer)
			}
			data, err := s.device.adapter.ReadBuffer(gid, c.Offset, c.Size)
			if err != nil {
				return fmt.Errorf("refdevice: commit: download: %w", err)
			}
			copy(c.Into, data)
		case device.DispatchCommand:
			if _, ok := s.device.kernels[c.Kernel]; !ok {
				return fmt.Errorf("refdevice: commit: unknown kernel %d", c.Kernel)
			}
			return fmt.Errorf("refdevice: commit: dispatch requires a bind group assembled from a bindless array, which this backend does not do automatically; a caller that has populated a bindless array must supply the gpucore.BindGroupDesc translation itself")
		case device.AccelBuildCommand:
			return ErrAccelUnsupported
		default:
			return fmt.Errorf("refdevice: commit: unrecognized command kind %q", cmd.Kind())
		}
	}
	s.device.adapter.Submit()
	return nil
}

// Synchronize waits for the adapter's previously submitted work to
// complete. gpucore.GPUAdapter.WaitIdle has no error return — a failed
// wait surfaces through a subsequent ReadBuffer instead.
func (s *Stream) Synchronize() error {
	s.device.adapter.WaitIdle()
	return nil
}
