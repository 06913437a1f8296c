package persistence

import (
	"runtime"
	"unsafe"
)

// littleEndian enables the raw-copy paths for integer slices.
var littleEndian = func() bool {
	var x uint16 = 1
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

// PlatformInfo describes the byte order used for raw slice copies.
func PlatformInfo() string {
	order := "little-endian"
	if !littleEndian {
		order = "big-endian (portable path)"
	}
	return runtime.GOOS + "/" + runtime.GOARCH + " " + order
}
