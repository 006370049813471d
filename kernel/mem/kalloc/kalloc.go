// Package kalloc implements the size-dispatching generic allocator: the
// front end callers reach for when they do not care which of the three
// tiered allocators backs a given request.
package kalloc

import (
	"vmkernel/kernel/mem"
	"vmkernel/kernel/mem/slab"
)

// PageThreshold is the largest request still served a whole page at a time
// by the free-list page allocator; anything larger is served by vmalloc.
const PageThreshold = 2 * mem.PageSize

// SlabAllocator is the capability kalloc needs from the slab tier.
type SlabAllocator interface {
	AllocByte(n uint64) (mem.VA, bool)
	DeallocByte(va mem.VA, n uint64)
}

// PageAllocator is the capability kalloc needs from the free-list page tier.
type PageAllocator interface {
	AllocPage(n int) (mem.VA, bool)
	DeallocPage(va mem.VA, n int)
}

// VPageAllocator is the capability kalloc needs from the vmalloc tier.
type VPageAllocator interface {
	AllocVPage(n int) (mem.VA, bool)
	DeallocVPage(va mem.VA)
}

// Allocator dispatches an allocation request of n bytes to one of the three
// tiered allocators based on size: requests up to slab.MaxSlabSize go to the
// slab allocator, requests up to PageThreshold go to the page allocator (one
// or two whole pages), and anything larger goes to vmalloc. It has no
// Free/Close method, like the tiers it wraps.
type Allocator struct {
	slab   SlabAllocator
	pages  PageAllocator
	vpages VPageAllocator
}

// Init binds the allocator to its three backing tiers.
func (a *Allocator) Init(slabAlloc SlabAllocator, pages PageAllocator, vpages VPageAllocator) {
	a.slab = slabAlloc
	a.pages = pages
	a.vpages = vpages
}

// DefaultAlign is the alignment Allocate/Deallocate assume when a caller has
// no stronger requirement.
const DefaultAlign = 8

// Allocate returns n bytes of memory from whichever tier size dispatch
// selects. align is accepted for interface parity with the allocator
// contract but is otherwise ignored: each tier's natural alignment (at
// least 8 bytes for every slab class, PageSize for the page and vmalloc
// tiers) already meets or exceeds
// any alignment a caller of this front end is expected to need. It returns
// (0, false) if the selected tier is out of memory.
func (a *Allocator) Allocate(n uint64, align uint64) (mem.VA, bool) {
	switch {
	case n <= slab.MaxSlabSize:
		return a.slab.AllocByte(n)
	case n <= uint64(PageThreshold):
		return a.pages.AllocPage(pageCount(n))
	default:
		return a.vpages.AllocVPage(pageCount(n))
	}
}

// Deallocate returns a region previously obtained from Allocate(n, align) to
// the same tier Allocate dispatched it to. The caller must pass the same n;
// there is no way to recover it from the pointer alone.
func (a *Allocator) Deallocate(va mem.VA, n uint64, align uint64) {
	switch {
	case n <= slab.MaxSlabSize:
		a.slab.DeallocByte(va, n)
	case n <= uint64(PageThreshold):
		a.pages.DeallocPage(va, pageCount(n))
	default:
		a.vpages.DeallocVPage(va)
	}
}

// pageCount returns ceil(n / PageSize), the number of whole pages needed to
// cover an n-byte request.
func pageCount(n uint64) int {
	return int((n + uint64(mem.PageSize) - 1) / uint64(mem.PageSize))
}
