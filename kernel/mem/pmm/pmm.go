// Package pmm implements the free-list physical page allocator layered
// above the boot allocator: a singly linked list of free runs, first-fit,
// non-coalescing. This is one of the three global allocators the kernel
// constructs exactly once and never destroys (see Allocator's doc comment).
package pmm

import (
	"vmkernel/kernel/mem"
	"vmkernel/kernel/sync"
)

// run is the free-list node stored in-place at the start of every free run
// of contiguous pages.
type run struct {
	pageCount uint64
	next      mem.VA
}

// Allocator manages a single physically contiguous region, partitioned
// into PageSize pages, as a singly linked list of free runs. It is one of
// the kernel's three global singleton allocators (alongside the slab and
// vmalloc allocators): it is constructed exactly once during boot and
// deliberately has no Free/Close method, since destroying it mid-kernel-
// life is a programming error the type system should rule out rather than
// one Allocator should detect and panic on at runtime.
type Allocator struct {
	lock sync.IRQSpinlock
	head mem.VA
}

// Init seeds the allocator with the entire region [start, start+pageCount*
// PageSize) as a single free run.
func (a *Allocator) Init(start mem.VA, pageCount uint64) {
	hdr := mem.As[run](start)
	*hdr = run{pageCount: pageCount, next: 0}
	a.head = start
}

// AllocPage scans the free list for the first run with at least n pages
// (first-fit) and returns its starting VA, splitting off and re-linking any
// leftover pages at the tail of the run. It returns (0, false) if no run is
// large enough.
func (a *Allocator) AllocPage(n int) (mem.VA, bool) {
	g := sync.NewGuard(&a.lock)
	defer g.Release()

	var prev mem.VA
	cur := a.head
	for !cur.IsZero() {
		hdr := mem.As[run](cur)
		if hdr.pageCount < uint64(n) {
			prev = cur
			cur = hdr.next
			continue
		}

		var replacement mem.VA
		if hdr.pageCount > uint64(n) {
			replacement = cur.Add(int64(n) * int64(mem.PageSize))
			*mem.As[run](replacement) = run{pageCount: hdr.pageCount - uint64(n), next: hdr.next}
		} else {
			replacement = hdr.next
		}

		if prev.IsZero() {
			a.head = replacement
		} else {
			mem.As[run](prev).next = replacement
		}
		return cur, true
	}

	return 0, false
}

// DeallocPage returns the n-page run starting at va to the free list by
// pushing a new header at va and making it the new head. Runs are never
// merged with their neighbors: this is an acknowledged limitation that lets
// long-running allocate/free interleavings fragment the list.
func (a *Allocator) DeallocPage(va mem.VA, n int) {
	g := sync.NewGuard(&a.lock)
	defer g.Release()

	*mem.As[run](va) = run{pageCount: uint64(n), next: a.head}
	a.head = va
}
