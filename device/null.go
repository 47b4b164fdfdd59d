package device

import "fmt"

// errNullDevice is returned by every NullDevice resource-creation call.
var errNullDevice = fmt.Errorf("device: no GPU device is configured")

// NullDevice is a Device that creates nothing, for CPU-only
// configurations and unit tests that need a Device value but never
// dispatch a real kernel. It mirrors the teacher's NullDeviceHandle
// null-object pattern: every creation method fails rather than
// panicking, so callers that do end up needing a device get a normal
// error instead of a nil-pointer crash.
type NullDevice struct{}

var _ Device = NullDevice{}

func (NullDevice) CreateBufferRaw(elemSize, n int) (BufferID, error) { return 0, errNullDevice }

func (NullDevice) ImportExternalBufferRaw(ptr uintptr, elemSize, n int) (BufferID, error) {
	return 0, errNullDevice
}

func (NullDevice) CreateImage(format ImageFormat, size [2]uint32) (ImageID, error) {
	return 0, errNullDevice
}

func (NullDevice) CreateAccel(options AccelOptions) (AccelID, error) { return 0, errNullDevice }

func (NullDevice) CreateBindlessArray() (BindlessArrayID, error) { return 0, errNullDevice }

func (NullDevice) Compile(kernel Kernel) (KernelHandle, error) { return 0, errNullDevice }

func (NullDevice) CreateStream() (Stream, error) { return nil, errNullDevice }

func (NullDevice) DestroyBuffer(BufferID)               {}
func (NullDevice) DestroyImage(ImageID)                 {}
func (NullDevice) DestroyAccel(AccelID)                 {}
func (NullDevice) DestroyBindlessArray(BindlessArrayID) {}
