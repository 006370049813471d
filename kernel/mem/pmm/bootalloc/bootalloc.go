// Package bootalloc implements the trivial bump allocator used to
// bootstrap the page-table engine before the free-list page allocator (and
// everything layered on top of it) exists.
package bootalloc

import (
	"vmkernel/kernel"
	"vmkernel/kernel/mem"
)

var errUnsupportedMultiPageAlloc = &kernel.Error{Module: "bootalloc", Message: "multi-page allocation is not supported by the boot allocator"}

// Allocator is a bump allocator over a single aligned physical window. It
// never frees: once the kernel switches to the free-list page allocator,
// whatever the boot allocator handed out is simply abandoned as permanently
// reserved.
type Allocator struct {
	next mem.VA
	end  mem.VA
}

// Init points the allocator at [start, end), which must both be
// PageSize-aligned. The allocator hands out pages from start upward.
func (a *Allocator) Init(start, end mem.VA) {
	a.next = start
	a.end = end
}

// AllocPage returns the next page-aligned VA in the window and advances the
// bump pointer. n must be 1; any other value panics, since the boot
// allocator has no notion of a multi-page run. AllocPage returns (0, false)
// once the window is exhausted.
func (a *Allocator) AllocPage(n int) (mem.VA, bool) {
	if n != 1 {
		panic(errUnsupportedMultiPageAlloc)
	}
	if a.next >= a.end {
		return 0, false
	}

	va := a.next
	a.next = a.next.Add(int64(mem.PageSize))
	return va, true
}

// DeallocPage is a no-op: the boot allocator never frees.
func (a *Allocator) DeallocPage(_ mem.VA, _ int) {}
