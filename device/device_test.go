package device

import (
	"errors"
	"testing"
)

type fakeKernel struct{ name string }

func (k fakeKernel) Name() string { return k.name }

type fakeStream struct {
	pending   []Command
	committed []Command
	synced    bool
}

func (s *fakeStream) Enqueue(cmd Command) { s.pending = append(s.pending, cmd) }

func (s *fakeStream) Commit() error {
	s.committed = append(s.committed, s.pending...)
	s.pending = nil
	return nil
}

func (s *fakeStream) Synchronize() error {
	s.synced = true
	return nil
}

type fakeDevice struct {
	nextBuffer BufferID
	elemSizes  map[BufferID]int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{elemSizes: map[BufferID]int{}}
}

func (d *fakeDevice) CreateBufferRaw(elemSize, n int) (BufferID, error) {
	d.nextBuffer++
	d.elemSizes[d.nextBuffer] = elemSize
	return d.nextBuffer, nil
}

func (d *fakeDevice) ImportExternalBufferRaw(ptr uintptr, elemSize, n int) (BufferID, error) {
	return d.CreateBufferRaw(elemSize, n)
}

func (d *fakeDevice) CreateImage(format ImageFormat, size [2]uint32) (ImageID, error) {
	return 1, nil
}

func (d *fakeDevice) CreateAccel(options AccelOptions) (AccelID, error) { return 1, nil }

func (d *fakeDevice) CreateBindlessArray() (BindlessArrayID, error) { return 1, nil }

func (d *fakeDevice) Compile(kernel Kernel) (KernelHandle, error) { return 1, nil }

func (d *fakeDevice) CreateStream() (Stream, error) { return &fakeStream{}, nil }

func (d *fakeDevice) DestroyBuffer(BufferID)               {}
func (d *fakeDevice) DestroyImage(ImageID)                 {}
func (d *fakeDevice) DestroyAccel(AccelID)                 {}
func (d *fakeDevice) DestroyBindlessArray(BindlessArrayID) {}

var _ Device = (*fakeDevice)(nil)

func TestCreateBufferInfersElementSizeFromType(t *testing.T) {
	d := newFakeDevice()
	id, err := CreateBuffer[float64](d, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.elemSizes[id]; got != 8 {
		t.Fatalf("got elem size %d, want 8 for float64", got)
	}
}

func TestImportExternalBufferInfersElementSizeFromType(t *testing.T) {
	d := newFakeDevice()
	id, err := ImportExternalBuffer[uint32](d, 0xdead, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.elemSizes[id]; got != 4 {
		t.Fatalf("got elem size %d, want 4 for uint32", got)
	}
}

func TestStreamOrdersEnqueueThenCommitThenSynchronize(t *testing.T) {
	d := newFakeDevice()
	s, err := d.CreateStream()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Enqueue(DispatchCommand{Kernel: 1, Size: [3]uint32{8, 8, 1}})
	s.Enqueue(BufferUploadCommand{Buffer: 1, Data: []byte{1, 2, 3}})
	if err := s.Commit(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Synchronize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fs := s.(*fakeStream)
	if len(fs.committed) != 2 {
		t.Fatalf("got %d committed commands, want 2", len(fs.committed))
	}
	if !fs.synced {
		t.Fatalf("expected Synchronize to have been observed")
	}
}

func TestNullDeviceRejectsResourceCreation(t *testing.T) {
	var d Device = NullDevice{}
	if _, err := d.CreateBufferRaw(4, 8); err == nil {
		t.Fatalf("expected NullDevice to reject buffer creation")
	}
	if _, err := CreateBuffer[float32](d, 8); err == nil {
		t.Fatalf("expected NullDevice to reject generic buffer creation")
	}
	if _, err := d.CreateStream(); err == nil {
		t.Fatalf("expected NullDevice to reject stream creation")
	}
	d.DestroyBuffer(1) // must not panic
}

func TestNullDeviceErrorsAreComparable(t *testing.T) {
	_, err1 := NullDevice{}.CreateAccel(AccelOptions{})
	_, err2 := NullDevice{}.CreateBindlessArray()
	if !errors.Is(err1, errNullDevice) || !errors.Is(err2, errNullDevice) {
		t.Fatalf("expected both errors to wrap the shared sentinel")
	}
}

func TestImageFormatString(t *testing.T) {
	cases := map[ImageFormat]string{
		ImageFormatFloat: "float",
		ImageFormatHalf:  "half",
		ImageFormatUint:  "uint",
	}
	for format, want := range cases {
		if got := format.String(); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}
