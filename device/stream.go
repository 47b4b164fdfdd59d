package device

// Command is one unit of work a Stream can enqueue: a kernel dispatch,
// a buffer upload/download, or an accel build/update. Concrete command
// types are a backend concern; this package only fixes the queuing and
// synchronization contract spec §6 names.
type Command interface {
	// Kind returns a short debug label ("dispatch", "upload", "accel-build", ...).
	Kind() string
}

// DispatchCommand enqueues a compiled kernel over a 3D launch grid,
// mirroring the teacher's ComputePassEncoder.Dispatch(x,y,z) shape.
type DispatchCommand struct {
	Kernel KernelHandle
	Size   [3]uint32
}

func (DispatchCommand) Kind() string { return "dispatch" }

// BufferUploadCommand copies host-resident bytes into a device buffer
// starting at offset.
type BufferUploadCommand struct {
	Buffer BufferID
	Offset uint64
	Data   []byte
}

func (BufferUploadCommand) Kind() string { return "buffer-upload" }

// BufferDownloadCommand reads size bytes from a device buffer starting
// at offset into Into, which must be at least size bytes long.
type BufferDownloadCommand struct {
	Buffer BufferID
	Offset uint64
	Size   uint64
	Into   []byte
}

func (BufferDownloadCommand) Kind() string { return "buffer-download" }

// AccelBuildCommand builds or rebuilds an acceleration structure after
// its geometry has been populated via buffer commands.
type AccelBuildCommand struct {
	Accel  AccelID
	Update bool
}

func (AccelBuildCommand) Kind() string { return "accel-build" }

// Stream is an ordered command queue: spec §6's "stream << command <<
// ...  is ordered; commit() flushes to the device; synchronize() waits.
// Any host code that reads device-produced memory must insert
// synchronize." Enqueue appends without submitting; Commit flushes
// enqueued commands to the device; Synchronize blocks until all
// previously committed work completes.
type Stream interface {
	// Enqueue appends cmd to the stream's pending command list in
	// order. Commands do not begin executing until Commit.
	Enqueue(cmd Command)

	// Commit flushes all pending commands to the device.
	Commit() error

	// Synchronize blocks until all committed work on this stream has
	// completed. Host code must call this before reading any buffer
	// populated by a BufferDownloadCommand.
	Synchronize() error
}
