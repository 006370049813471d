package vmm

import "vmkernel/kernel/mem"

// PageAllocator is the capability contract a page table needs from whatever
// backs its own table pages: hand out a page-aligned VA and take one back.
// Both the boot allocator and the free-list page allocator satisfy it.
type PageAllocator interface {
	AllocPage(n int) (mem.VA, bool)
	DeallocPage(va mem.VA, n int)
}

var (
	// paToVAFn and vaToPAFn translate between the physical page numbers
	// stored in PTEs and the virtual addresses the allocators and mem.As
	// deal in. In production both are the direct-map translation; tests
	// override them with an identity mapping so fabricated "physical"
	// addresses are just the real addresses of Go-allocated backing
	// arrays, without needing a real direct-map window.
	paToVAFn = mem.ToVA
	vaToPAFn = mem.ToPA
)

// tableAt returns a pointer to the 512-entry table stored at the physical
// page pa.
func tableAt(pa mem.PA) *[512]pte {
	return mem.As[[512]pte](paToVAFn(pa))
}

// allocTablePage allocates and zeroes a single page-table page from alloc,
// returning its physical address.
func allocTablePage[A PageAllocator](alloc A) (mem.PA, bool) {
	va, ok := alloc.AllocPage(1)
	if !ok {
		return 0, false
	}
	mem.Memset(va, 0, uintptr(mem.PageSize))
	return vaToPAFn(va), true
}

// SetTranslationForTesting overrides the PA<->VA translation seam used to
// dereference page-table pages, returning a function that restores the
// previous translation. It exists so packages built on top of PageTable
// (vmalloc, boot) can exercise it against tables backed by ordinary Go
// memory instead of the real direct map from their own package's tests,
// where the unexported paToVAFn/vaToPAFn vars are out of reach. Production
// code must never call it.
func SetTranslationForTesting(toVA func(mem.PA) mem.VA, toPA func(mem.VA) mem.PA) (restore func()) {
	origToVA, origToPA := paToVAFn, vaToPAFn
	paToVAFn, vaToPAFn = toVA, toPA
	return func() {
		paToVAFn, vaToPAFn = origToVA, origToPA
	}
}
