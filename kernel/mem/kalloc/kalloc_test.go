package kalloc

import (
	"testing"

	"vmkernel/kernel/mem"
)

// fakeTier records which dispatch method was called and with what size, and
// hands back a distinct fake VA per call so tests can tell tiers apart.
type fakeTier struct {
	allocByteCalls  []uint64
	allocPageCalls  []int
	allocVpageCalls []int
	next            mem.VA
}

func (f *fakeTier) AllocByte(n uint64) (mem.VA, bool) {
	f.allocByteCalls = append(f.allocByteCalls, n)
	f.next += 8
	return f.next, true
}
func (f *fakeTier) DeallocByte(mem.VA, uint64) {}

func (f *fakeTier) AllocPage(n int) (mem.VA, bool) {
	f.allocPageCalls = append(f.allocPageCalls, n)
	f.next += mem.VA(mem.PageSize)
	return f.next, true
}
func (f *fakeTier) DeallocPage(mem.VA, int) {}

func (f *fakeTier) AllocVPage(n int) (mem.VA, bool) {
	f.allocVpageCalls = append(f.allocVpageCalls, n)
	f.next += mem.VA(mem.PageSize)
	return f.next, true
}
func (f *fakeTier) DeallocVPage(mem.VA) {}

func TestAllocateDispatchesBySize(t *testing.T) {
	var f fakeTier
	var a Allocator
	a.Init(&f, &f, &f)

	if _, ok := a.Allocate(64, DefaultAlign); !ok {
		t.Fatal("expected alloc to succeed")
	}
	if len(f.allocByteCalls) != 1 || f.allocByteCalls[0] != 64 {
		t.Fatalf("expected a 64-byte slab request, got %v", f.allocByteCalls)
	}

	if _, ok := a.Allocate(4096, DefaultAlign); !ok {
		t.Fatal("expected alloc to succeed")
	}
	if len(f.allocPageCalls) != 1 || f.allocPageCalls[0] != 1 {
		t.Fatalf("expected a 1-page request, got %v", f.allocPageCalls)
	}

	if _, ok := a.Allocate(uint64(PageThreshold)+1, DefaultAlign); !ok {
		t.Fatal("expected alloc to succeed")
	}
	if len(f.allocVpageCalls) != 1 {
		t.Fatalf("expected a vmalloc request, got %v", f.allocVpageCalls)
	}
}

func TestAllocatePageCountRoundsUp(t *testing.T) {
	var f fakeTier
	var a Allocator
	a.Init(&f, &f, &f)

	// Just over one page's worth still falls under the page tier's
	// PageThreshold (2 pages), and must round up to 2 pages.
	if _, ok := a.Allocate(uint64(mem.PageSize)+1, DefaultAlign); !ok {
		t.Fatal("expected alloc to succeed")
	}
	if len(f.allocPageCalls) != 1 || f.allocPageCalls[0] != 2 {
		t.Fatalf("expected a 2-page request, got %v", f.allocPageCalls)
	}
}

func TestAllocateSlabBoundary(t *testing.T) {
	var f fakeTier
	var a Allocator
	a.Init(&f, &f, &f)

	if _, ok := a.Allocate(2048, DefaultAlign); !ok {
		t.Fatal("expected alloc to succeed")
	}
	if len(f.allocByteCalls) != 1 {
		t.Fatalf("expected the slab tier to serve a 2048-byte request, got %v", f.allocByteCalls)
	}

	if _, ok := a.Allocate(2049, DefaultAlign); !ok {
		t.Fatal("expected alloc to succeed")
	}
	if len(f.allocPageCalls) != 1 {
		t.Fatalf("expected the page tier to serve a 2049-byte request, got %v", f.allocPageCalls)
	}
}

func TestDeallocateDispatchesBySameSize(t *testing.T) {
	var f fakeTier
	var a Allocator
	a.Init(&f, &f, &f)

	va, _ := a.Allocate(64, DefaultAlign)
	a.Deallocate(va, 64, DefaultAlign)

	vb, _ := a.Allocate(uint64(PageThreshold)+1, DefaultAlign)
	a.Deallocate(vb, uint64(PageThreshold)+1, DefaultAlign)
}
