// Package vmalloc implements the virtually-contiguous page allocator: pages
// in [mem.VmallocStart, mem.VmallocEnd) backed by individually allocated,
// physically fragmented pages mapped into the live kernel page table.
package vmalloc

import (
	"unsafe"

	"vmkernel/kernel"
	"vmkernel/kernel/arch"
	"vmkernel/kernel/mem"
	"vmkernel/kernel/mem/vmm"
	"vmkernel/kernel/sync"
)

var errUnknownRegion = &kernel.Error{Module: "vmalloc", Message: "dealloc_vpage on a VA with no active region"}

// NodeAllocator is the capability vmalloc needs to allocate the small,
// fixed-size region-tracking nodes of its occupied-region list. slab.Allocator
// satisfies this directly.
type NodeAllocator interface {
	AllocByte(n uint64) (mem.VA, bool)
	DeallocByte(va mem.VA, n uint64)
}

// regionNode is the in-place header of one node in the sorted singly linked
// list of occupied regions.
type regionNode struct {
	va        mem.VA
	pageCount uint64
	next      mem.VA
}

var nodeSize = uint64(unsafe.Sizeof(regionNode{}))

var (
	// paToVAFn and vaToPAFn translate between the direct-map VAs the
	// physical page allocator deals in and the physical addresses installed
	// in (and read back from) the page table. Tests override them with an
	// identity mapping, matching the page-table engine's own translation
	// seam.
	paToVAFn = mem.ToVA
	vaToPAFn = mem.ToPA
)

// Allocator hands out virtually contiguous runs of pages whose backing
// physical pages need not be contiguous, mapping them into pt. It is one of
// the kernel's global singleton allocators and has no Free/Close method.
type Allocator[A vmm.PageAllocator] struct {
	lock  sync.IRQSpinlock
	pages vmm.PageAllocator
	nodes NodeAllocator
	pt    *vmm.PageTable[A]
	head  mem.VA
}

// Init binds the allocator to the live kernel page table, the physical page
// allocator backing each vpage, and the slab-backed node allocator used for
// the occupied-region list. The region list starts empty.
func (a *Allocator[A]) Init(pt *vmm.PageTable[A], pages vmm.PageAllocator, nodes NodeAllocator) {
	a.pt = pt
	a.pages = pages
	a.nodes = nodes
}

// AllocVPage scans the occupied-region list for the first gap of at least n
// pages in [VmallocStart, VmallocEnd), maps n freshly allocated physical
// pages into it with R|W|X permissions, and returns its start VA. It returns
// (0, false) if no sufficiently large gap exists or a physical page
// allocation fails partway through; in the latter case the pages already
// mapped are unmapped again. They were never accessed, so no TLB flush is
// needed, and they are not returned to the page allocator.
func (a *Allocator[A]) AllocVPage(n int) (mem.VA, bool) {
	g := sync.NewGuard(&a.lock)
	defer g.Release()

	prevEnd := mem.VmallocStart
	var prevNode mem.VA
	cur := a.head
	for !cur.IsZero() {
		node := mem.As[regionNode](cur)
		if gapPages(prevEnd, node.va) >= uint64(n) {
			break
		}
		prevEnd = node.va.Add(int64(node.pageCount) * int64(mem.PageSize))
		prevNode = cur
		cur = node.next
	}
	if cur.IsZero() && gapPages(prevEnd, mem.VmallocEnd) < uint64(n) {
		return 0, false
	}

	start := prevEnd
	for i := 0; i < n; i++ {
		page, ok := a.pages.AllocPage(1)
		if !ok {
			for j := 0; j < i; j++ {
				a.pt.DelMapping(start.Add(int64(j) * int64(mem.PageSize)))
			}
			return 0, false
		}
		a.pt.AddMapping(start.Add(int64(i)*int64(mem.PageSize)), vaToPAFn(page), mem.PermR|mem.PermW|mem.PermX, vmm.LevelL0)
	}

	nodeVA, ok := a.nodes.AllocByte(nodeSize)
	if !ok {
		for i := 0; i < n; i++ {
			a.pt.DelMapping(start.Add(int64(i) * int64(mem.PageSize)))
		}
		return 0, false
	}

	node := mem.As[regionNode](nodeVA)
	*node = regionNode{va: start, pageCount: uint64(n)}
	if prevNode.IsZero() {
		node.next = a.head
		a.head = nodeVA
	} else {
		prev := mem.As[regionNode](prevNode)
		node.next = prev.next
		prev.next = nodeVA
	}

	return start, true
}

// DeallocVPage releases the region starting exactly at va: each physical
// page is returned to the page allocator, unmapped, and locally flushed; a
// single remote TLB shootdown is broadcast for the whole range once the
// loop completes; finally the region's list node is unlinked and freed. It
// panics if va is not the start of an active region.
func (a *Allocator[A]) DeallocVPage(va mem.VA) {
	g := sync.NewGuard(&a.lock)
	defer g.Release()

	var prevNode mem.VA
	cur := a.head
	for {
		if cur.IsZero() {
			panic(errUnknownRegion)
		}
		node := mem.As[regionNode](cur)
		if node.va == va {
			break
		}
		prevNode = cur
		cur = node.next
	}

	node := mem.As[regionNode](cur)
	n := node.pageCount
	for i := uint64(0); i < n; i++ {
		pageVA := va.Add(int64(i) * int64(mem.PageSize))
		pa := a.pt.Transform(pageVA)
		a.pages.DeallocPage(paToVAFn(pa), 1)
		a.pt.DelMapping(pageVA)
		arch.TLBFlushVA(pageVA)
	}
	arch.RemoteTLBFlushRange(va, mem.Size(n)*mem.PageSize)

	if prevNode.IsZero() {
		a.head = node.next
	} else {
		mem.As[regionNode](prevNode).next = node.next
	}
	a.nodes.DeallocByte(cur, nodeSize)
}

// gapPages returns the number of whole pages between from and to, treating
// to < from as a zero-sized gap.
func gapPages(from, to mem.VA) uint64 {
	if to <= from {
		return 0
	}
	return uint64(to-from) / uint64(mem.PageSize)
}
