package mem

import "unsafe"

// As reinterprets the memory at va as a *T. The caller is responsible for
// ensuring va is mapped, readable and holds a live T; As is typically used
// to dereference kernel structures (page tables, allocator headers) through
// the direct map.
func As[T any](va VA) *T {
	return (*T)(unsafe.Pointer(uintptr(va)))
}
