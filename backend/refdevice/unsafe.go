package refdevice

import "unsafe"

// unsafeBytesFromPtr views n bytes of host memory starting at ptr as a
// byte slice without copying, for staging an ImportExternalBufferRaw
// call's upload. The caller (device.ImportExternalBuffer) guarantees
// ptr stays valid and pinned for the duration of this call.
func unsafeBytesFromPtr(ptr uintptr, n uint64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n)
}
