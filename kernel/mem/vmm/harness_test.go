package vmm

import (
	"unsafe"

	"vmkernel/kernel/mem"
)

// fakeAllocator backs every "page" it hands out with a real Go-allocated,
// page-aligned-enough byte slice, so the page-table engine's unsafe pointer
// arithmetic operates on addressable process memory during tests. It never
// reuses a deallocated page; tests that need to observe DeallocPage calls
// should read f.freed directly.
type fakeAllocator struct {
	pages [][]byte
	freed []mem.VA
}

func (f *fakeAllocator) AllocPage(n int) (mem.VA, bool) {
	buf := make([]byte, uintptr(n)*uintptr(mem.PageSize)+uintptr(mem.PageSize))
	addr := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (addr + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)
	f.pages = append(f.pages, buf)
	return mem.VA(aligned), true
}

func (f *fakeAllocator) DeallocPage(va mem.VA, n int) {
	f.freed = append(f.freed, va)
}

// useIdentityTranslation overrides the vmm package's PA<->VA translation
// seam with a numeric identity, since tests do not run inside the real
// direct-map window. It returns a restore function to be deferred.
func useIdentityTranslation() func() {
	origPAtoVA, origVAtoPA := paToVAFn, vaToPAFn
	paToVAFn = func(pa mem.PA) mem.VA { return mem.VA(pa) }
	vaToPAFn = func(va mem.VA) mem.PA { return mem.PA(va) }
	return func() {
		paToVAFn, vaToPAFn = origPAtoVA, origVAtoPA
	}
}
