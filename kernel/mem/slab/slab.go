// Package slab implements the fixed-size-class small-object allocator
// layered atop the free-list page allocator.
package slab

import (
	"math/bits"

	"vmkernel/kernel"
	"vmkernel/kernel/mem"
	"vmkernel/kernel/sync"
)

// MaxSlabSize is the largest request slab.Allocator will service; anything
// larger belongs to the page or vmalloc allocator.
const MaxSlabSize = 2048

var (
	errRequestTooLarge = &kernel.Error{Module: "slab", Message: "requested size exceeds MaxSlabSize"}
	errMisalignedFree  = &kernel.Error{Module: "slab", Message: "freed address is not aligned to its class size"}
)

// classSizes are the eleven size classes, in ascending order. 96 and 192 sit
// between power-of-two neighbors and are reachable only by an exact request
// for that size; every other request rounds up to the next power of two.
var classSizes = [...]uint64{8, 16, 32, 64, 96, 128, 192, 256, 512, 1024, 2048}

// object is the free-list header stored in place at the start of every free
// object within a class.
type object struct {
	next mem.VA
}

// PageAllocator is the capability slab.Allocator needs from the backing
// page allocator: one page at a time, never more.
type PageAllocator interface {
	AllocPage(n int) (mem.VA, bool)
	DeallocPage(va mem.VA, n int)
}

// Allocator is the slab allocator: eleven per-class free-object lists
// sharing a single coarse lock, refilled one page at a time from pages.
// Like pmm.Allocator, it is one of the kernel's global singleton allocators
// and has no Free/Close method.
type Allocator struct {
	lock    sync.IRQSpinlock
	pages   PageAllocator
	classes [len(classSizes)]mem.VA
}

// Init binds the allocator to its backing page allocator. All class lists
// start empty.
func (a *Allocator) Init(pages PageAllocator) {
	a.pages = pages
}

// classIndex maps a requested size to its class index, applying the
// bit_ceil rounding rule described by classSizes' doc comment. ok is false
// for a zero-sized request.
func classIndex(n uint64) (idx int, ok bool) {
	if n == 0 {
		return 0, false
	}
	if n > MaxSlabSize {
		panic(errRequestTooLarge)
	}
	if n == 96 {
		return 4, true
	}
	if n == 192 {
		return 6, true
	}

	rounded := bitCeil(n)
	for i, sz := range classSizes {
		if sz >= rounded {
			return i, true
		}
	}
	panic(errRequestTooLarge)
}

// bitCeil returns the smallest power of two ≥ n.
func bitCeil(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return uint64(1) << bits.Len64(n-1)
}

// AllocByte returns a free object of at least n bytes, refilling the class
// from the page allocator if its list is empty. It returns (0, false) for a
// zero-sized request or when the page allocator is out of memory.
func (a *Allocator) AllocByte(n uint64) (mem.VA, bool) {
	idx, ok := classIndex(n)
	if !ok {
		return 0, false
	}

	g := sync.NewGuard(&a.lock)
	defer g.Release()

	if a.classes[idx].IsZero() {
		if !a.refillLocked(idx) {
			return 0, false
		}
	}

	head := a.classes[idx]
	a.classes[idx] = mem.As[object](head).next
	return head, true
}

// refillLocked obtains one page from the backing page allocator and chops it
// into classSizes[idx]-sized objects, stitching them into a free list in
// address order, with the first object becoming the new class head. The
// caller must hold a.lock.
func (a *Allocator) refillLocked(idx int) bool {
	page, ok := a.pages.AllocPage(1)
	if !ok {
		return false
	}

	size := classSizes[idx]
	count := uint64(mem.PageSize) / size

	for i := uint64(0); i < count; i++ {
		obj := page.Add(int64(i * size))
		var next mem.VA
		if i+1 < count {
			next = page.Add(int64((i + 1) * size))
		}
		mem.As[object](obj).next = next
	}

	a.classes[idx] = page
	return true
}

// DeallocByte returns the object at va, which must have been obtained from
// AllocByte(n), to its class's free list. It panics if va is not aligned to
// n's class size.
func (a *Allocator) DeallocByte(va mem.VA, n uint64) {
	idx, ok := classIndex(n)
	if !ok {
		return
	}
	if !va.IsAlignedTo(classSizes[idx]) {
		panic(errMisalignedFree)
	}

	g := sync.NewGuard(&a.lock)
	defer g.Release()

	mem.As[object](va).next = a.classes[idx]
	a.classes[idx] = va
}
