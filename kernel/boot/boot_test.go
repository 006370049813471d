package boot

import (
	"testing"
	"unsafe"

	"vmkernel/kernel/mem"
	"vmkernel/kernel/mem/kalloc"
	"vmkernel/kernel/mem/pmm"
	"vmkernel/kernel/mem/pmm/bootalloc"
	"vmkernel/kernel/mem/slab"
	"vmkernel/kernel/mem/vmalloc"
	"vmkernel/kernel/mem/vmm"
)

// resetGlobals clears every package-level singleton so each test starts from
// a fresh, un-initialized boot package, mirroring how the singletons would
// look before the kernel's actual one-shot boot call.
func resetGlobals(t *testing.T) {
	t.Helper()
	initialized = false
	bootAllocator = bootalloc.Allocator{}
	handoff = handoffAllocator{}
	kernelTable = vmm.PageTable[*handoffAllocator]{}
	pageAllocator = pmm.Allocator{}
	slabAllocator = slab.Allocator{}
	vmallocAlloc = vmalloc.Allocator[*handoffAllocator]{}
	kallocAlloc = kalloc.Allocator{}
}

// useIdentityTranslation overrides the page-table engine's PA<->VA
// translation seam with a numeric identity for the duration of a test. Init
// is exercised here entirely with plain, small, Go-backed addresses (never
// the real DirectMapBase-prefixed window), so this keeps every table-page
// dereference landing on addressable test-process memory. See
// vmm.SetTranslationForTesting.
func useIdentityTranslation(t *testing.T) {
	t.Helper()
	restore := vmm.SetTranslationForTesting(
		func(pa mem.PA) mem.VA { return mem.VA(pa) },
		func(va mem.VA) mem.PA { return mem.PA(va) },
	)
	t.Cleanup(restore)
}

// alignedBuffer returns a real Go-backed, page-aligned VA with room for at
// least pageCount pages.
func alignedBuffer(pageCount int) mem.VA {
	buf := make([]byte, uintptr(pageCount+1)*uintptr(mem.PageSize))
	addr := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (addr + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)
	return mem.VA(aligned)
}

func mockSetPageTableBase(t *testing.T) *mem.PA {
	t.Helper()
	var installed mem.PA
	orig := setPageTableBaseFn
	setPageTableBaseFn = func(pa mem.PA) { installed = pa }
	t.Cleanup(func() { setPageTableBaseFn = orig })
	return &installed
}

func TestInitWiresAllocatorsAndInstallsPageTable(t *testing.T) {
	resetGlobals(t)
	useIdentityTranslation(t)
	installed := mockSetPageTableBase(t)

	bootWindow := alignedBuffer(8)
	freeRegion := alignedBuffer(16)

	Init(bootWindow, bootWindow.Add(8*int64(mem.PageSize)), nil, freeRegion, 16)

	if !initialized {
		t.Fatal("expected Init to mark the package initialized")
	}
	if *installed != KernelPageTable().Entry() {
		t.Fatalf("expected the installed root to match the kernel table's entry; got %#x want %#x", *installed, KernelPageTable().Entry())
	}
}

func TestInitTwicePanics(t *testing.T) {
	resetGlobals(t)
	useIdentityTranslation(t)
	mockSetPageTableBase(t)

	bootWindow := alignedBuffer(8)
	freeRegion := alignedBuffer(16)
	Init(bootWindow, bootWindow.Add(8*int64(mem.PageSize)), nil, freeRegion, 16)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a second Init call to panic")
		}
	}()
	Init(bootWindow, bootWindow.Add(8*int64(mem.PageSize)), nil, freeRegion, 16)
}

func TestAccessorsPanicBeforeInit(t *testing.T) {
	resetGlobals(t)

	for name, fn := range map[string]func(){
		"PageAllocator":    func() { PageAllocator() },
		"SlabAllocator":    func() { SlabAllocator() },
		"VMallocAllocator": func() { VMallocAllocator() },
		"Kalloc":           func() { Kalloc() },
		"KernelPageTable":  func() { KernelPageTable() },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected %s to panic before Init", name)
				}
			}()
			fn()
		})
	}
}

func TestInitAppliesInitialMappings(t *testing.T) {
	resetGlobals(t)
	useIdentityTranslation(t)
	mockSetPageTableBase(t)

	bootWindow := alignedBuffer(8)
	freeRegion := alignedBuffer(16)

	va := mem.VA(0x2000)
	pa := mem.PA(0x9000_0000)
	mappings := []Mapping{
		{VA: va, PA: pa, PageCount: 1, Perm: mem.PermR | mem.PermW, Level: vmm.LevelL0},
	}
	Init(bootWindow, bootWindow.Add(8*int64(mem.PageSize)), mappings, freeRegion, 16)

	if got := KernelPageTable().Transform(va); got != pa {
		t.Fatalf("expected the initial mapping to resolve to %#x; got %#x", pa, got)
	}
	if got := KernelPageTable().GetPagePerm(va); got != mem.PermR|mem.PermW {
		t.Fatalf("expected R|W permissions; got %#x", got)
	}
}

func TestPageAndSlabAllocatorsServeAfterInit(t *testing.T) {
	resetGlobals(t)
	useIdentityTranslation(t)
	mockSetPageTableBase(t)

	bootWindow := alignedBuffer(8)
	freeRegion := alignedBuffer(16)
	Init(bootWindow, bootWindow.Add(8*int64(mem.PageSize)), nil, freeRegion, 16)

	page, ok := PageAllocator().AllocPage(2)
	if !ok {
		t.Fatal("expected the page allocator to serve a request out of the free region")
	}
	PageAllocator().DeallocPage(page, 2)

	obj, ok := SlabAllocator().AllocByte(64)
	if !ok {
		t.Fatal("expected the slab allocator to serve a 64-byte request")
	}
	SlabAllocator().DeallocByte(obj, 64)
}

func TestKallocSmallRequestGoesToSlabTier(t *testing.T) {
	resetGlobals(t)
	useIdentityTranslation(t)
	mockSetPageTableBase(t)

	bootWindow := alignedBuffer(8)
	freeRegion := alignedBuffer(16)
	Init(bootWindow, bootWindow.Add(8*int64(mem.PageSize)), nil, freeRegion, 16)

	va, ok := Kalloc().Allocate(128, kalloc.DefaultAlign)
	if !ok {
		t.Fatal("expected a small kalloc request to succeed")
	}
	Kalloc().Deallocate(va, 128, kalloc.DefaultAlign)
}
