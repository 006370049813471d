package mem

import (
	"reflect"
	"unsafe"
)

// Memset sets size bytes starting at addr to value. The implementation is
// based on bytes.Repeat: instead of a plain byte loop it performs
// log2(size) copies, which is fast for the page-aligned, power-of-two
// sizes the allocators deal in.
func Memset(addr VA, value byte, size uintptr) {
	if size == 0 {
		return
	}

	target := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: uintptr(addr),
	}))

	target[0] = value
	for index := uintptr(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}

// Memcopy copies size bytes from src to dst. The regions must not overlap.
func Memcopy(src, dst VA, size uintptr) {
	if size == 0 {
		return
	}

	srcSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: uintptr(src),
	}))
	dstSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: uintptr(dst),
	}))

	copy(dstSlice, srcSlice)
}
