// Package boot performs the kernel's global init sequence: it wires the
// boot page allocator, the page-table engine, and the three tiered
// allocators into their one-shot bring-up order, and holds the resulting
// singletons for the rest of the kernel to reach.
package boot

import (
	"vmkernel/kernel"
	"vmkernel/kernel/arch"
	"vmkernel/kernel/kfmt"
	"vmkernel/kernel/mem"
	"vmkernel/kernel/mem/kalloc"
	"vmkernel/kernel/mem/pmm"
	"vmkernel/kernel/mem/pmm/bootalloc"
	"vmkernel/kernel/mem/slab"
	"vmkernel/kernel/mem/vmalloc"
	"vmkernel/kernel/mem/vmm"
)

var (
	errAlreadyInitialized = &kernel.Error{Module: "boot", Message: "Init called more than once"}
	errNotInitialized     = &kernel.Error{Module: "boot", Message: "global allocator accessed before Init"}
)

// setPageTableBaseFn installs pa as the live root page table. It is mocked
// by tests and is automatically inlined by the compiler.
var setPageTableBaseFn = arch.SetPageTableBase

// handoffAllocator lets the kernel page table keep a single PageAllocator
// type parameter across the boot/runtime transition: until pmm takes over,
// it forwards table-page requests to the boot allocator; afterward, to pmm.
// The table itself never notices the switch.
type handoffAllocator struct {
	boot *bootalloc.Allocator
	pmm  *pmm.Allocator
}

func (h *handoffAllocator) AllocPage(n int) (mem.VA, bool) {
	if h.pmm != nil {
		return h.pmm.AllocPage(n)
	}
	return h.boot.AllocPage(n)
}

func (h *handoffAllocator) DeallocPage(va mem.VA, n int) {
	if h.pmm != nil {
		h.pmm.DeallocPage(va, n)
		return
	}
	h.boot.DeallocPage(va, n)
}

// Mapping describes one run of pages to install in the kernel's initial
// page table during Init, e.g. the kernel image or an early direct-map
// window. VA and PA must both be aligned to vmm.PageSize(Level).
type Mapping struct {
	VA        mem.VA
	PA        mem.PA
	PageCount uint64
	Perm      mem.Perm
	Level     vmm.Level
}

var (
	initialized bool

	bootAllocator bootalloc.Allocator
	handoff       handoffAllocator
	kernelTable   vmm.PageTable[*handoffAllocator]
	pageAllocator pmm.Allocator
	slabAllocator slab.Allocator
	vmallocAlloc  vmalloc.Allocator[*handoffAllocator]
	kallocAlloc   kalloc.Allocator
)

// Init runs the memory-subsystem bring-up exactly once: it seeds the boot
// allocator over [bootWindowStart, bootWindowEnd), builds the kernel's
// initial page table using it, initializes the free-list page allocator
// over the remaining physical region [freeRegionStart, freeRegionStart+
// freeRegionPageCount*PageSize), layers the slab allocator on top, installs
// the new table as the live root (switching the handoff allocator's table-
// page source over to pmm in the same step), and finally initializes
// vmalloc atop the live table and kalloc atop all three tiers. Calling Init
// a second time is a programming error and panics.
func Init(bootWindowStart, bootWindowEnd mem.VA, mappings []Mapping, freeRegionStart mem.VA, freeRegionPageCount uint64) {
	if initialized {
		panic(errAlreadyInitialized)
	}

	kfmt.Printf("[boot] boot allocator window: [0x%16x - 0x%16x]\n", uint64(bootWindowStart), uint64(bootWindowEnd))
	bootAllocator.Init(bootWindowStart, bootWindowEnd)
	handoff.boot = &bootAllocator

	kernelTable = vmm.NewPageTable[*handoffAllocator](&handoff)
	for _, m := range mappings {
		stride := int64(vmm.PageSize(m.Level))
		for i := uint64(0); i < m.PageCount; i++ {
			off := int64(i) * stride
			kernelTable.AddMapping(m.VA.Add(off), m.PA.Add(off), m.Perm, m.Level)
		}
	}

	kfmt.Printf("[boot] free page region: 0x%16x, %d pages\n", uint64(freeRegionStart), freeRegionPageCount)
	pageAllocator.Init(freeRegionStart, freeRegionPageCount)
	slabAllocator.Init(&pageAllocator)

	// From this point on, new kernel-table pages come from pmm rather than
	// the (by now likely exhausted) boot window.
	handoff.pmm = &pageAllocator

	setPageTableBaseFn(kernelTable.Entry())
	kfmt.Printf("[boot] kernel page table installed, root: 0x%16x\n", uint64(kernelTable.Entry()))

	vmallocAlloc.Init(&kernelTable, &pageAllocator, &slabAllocator)
	kallocAlloc.Init(&slabAllocator, &pageAllocator, &vmallocAlloc)

	initialized = true
}

func mustBeInitialized() {
	if !initialized {
		panic(errNotInitialized)
	}
}

// PageAllocator returns the kernel's single free-list page allocator.
func PageAllocator() *pmm.Allocator {
	mustBeInitialized()
	return &pageAllocator
}

// SlabAllocator returns the kernel's single slab allocator.
func SlabAllocator() *slab.Allocator {
	mustBeInitialized()
	return &slabAllocator
}

// VMallocAllocator returns the kernel's single vmalloc allocator.
func VMallocAllocator() *vmalloc.Allocator[*handoffAllocator] {
	mustBeInitialized()
	return &vmallocAlloc
}

// Kalloc returns the kernel's single size-dispatching generic allocator.
func Kalloc() *kalloc.Allocator {
	mustBeInitialized()
	return &kallocAlloc
}

// KernelPageTable returns the live kernel page table installed by Init.
func KernelPageTable() *vmm.PageTable[*handoffAllocator] {
	mustBeInitialized()
	return &kernelTable
}
