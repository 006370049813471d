package mem

import (
	"testing"
	"unsafe"
)

func TestAddrArithmetic(t *testing.T) {
	pa := PA(0x8000_0000)
	if got := pa.Add(0x1000); got != PA(0x8000_1000) {
		t.Errorf("expected PA.Add to offset forward; got %#x", got)
	}
	if got := pa.Add(-0x1000); got != PA(0x7FFF_F000) {
		t.Errorf("expected PA.Add to offset backward; got %#x", got)
	}

	va := VA(0x4000)
	if got := va.Add(16); got != VA(0x4010) {
		t.Errorf("expected VA.Add to offset forward; got %#x", got)
	}

	if !PA(0).IsZero() || PA(1).IsZero() {
		t.Error("expected IsZero to be true only for the null physical address")
	}
	if !VA(0).IsZero() || VA(1).IsZero() {
		t.Error("expected IsZero to be true only for the null virtual address")
	}
}

func TestIsAlignedTo(t *testing.T) {
	specs := []struct {
		addr    uint64
		align   uint64
		aligned bool
	}{
		{0x0, 0x1000, true},
		{0x1000, 0x1000, true},
		{0x1001, 0x1000, false},
		{0x8000_0000, uint64(HugePageSize), true},
		{0x8010_0000, uint64(HugePageSize), false},
		{0x8020_0000, uint64(MidPageSize), true},
	}

	for specIndex, spec := range specs {
		if got := PA(spec.addr).IsAlignedTo(spec.align); got != spec.aligned {
			t.Errorf("[spec %d] expected PA(%#x).IsAlignedTo(%#x) = %t; got %t", specIndex, spec.addr, spec.align, spec.aligned, got)
		}
		if got := VA(spec.addr).IsAlignedTo(spec.align); got != spec.aligned {
			t.Errorf("[spec %d] expected VA(%#x).IsAlignedTo(%#x) = %t; got %t", specIndex, spec.addr, spec.align, spec.aligned, got)
		}
	}
}

func TestDirectMapRoundTrip(t *testing.T) {
	pa := PA(0x8000_2000)
	va := ToVA(pa)

	if va != DirectMapBase.Add(int64(pa)) {
		t.Fatalf("expected ToVA to offset into the direct map window; got %#x", va)
	}
	if got := ToPA(va); got != pa {
		t.Fatalf("expected ToPA to invert ToVA; got %#x", got)
	}
}

func TestToVAOutsideWindowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected ToVA past the direct map limit to panic")
		}
	}()
	ToVA(DirectMapLimit)
}

func TestToPAOutsideWindowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected ToPA below the direct map base to panic")
		}
	}()
	ToPA(KernelImageStart)
}

func TestCanTransformProbes(t *testing.T) {
	if !CanTransform(PA(0)) || !CanTransform(DirectMapLimit.Add(-1)) {
		t.Error("expected addresses inside the window to be transformable")
	}
	if CanTransform(DirectMapLimit) {
		t.Error("expected the window limit itself to be rejected")
	}

	if !CanTransformVA(DirectMapBase) {
		t.Error("expected the direct map base to be transformable")
	}
	if CanTransformVA(VmallocStart) || CanTransformVA(VA(0x1000)) {
		t.Error("expected addresses outside the direct map window to be rejected")
	}
}

func TestPermHas(t *testing.T) {
	p := PermR | PermW
	if !p.Has(PermR) || !p.Has(PermW) || !p.Has(PermR|PermW) {
		t.Error("expected Has to report each contained flag")
	}
	if p.Has(PermX) || p.Has(PermR|PermX) {
		t.Error("expected Has to reject flags not fully contained")
	}
}

func TestMemset(t *testing.T) {
	for _, size := range []uintptr{1, 3, 16, 100, 4096} {
		buf := make([]byte, size)
		Memset(VA(uintptr(unsafe.Pointer(&buf[0]))), 0xAB, size)
		for i, b := range buf {
			if b != 0xAB {
				t.Fatalf("size %d: expected byte %d to be set; got %#x", size, i, b)
			}
		}
	}
}

func TestMemcopy(t *testing.T) {
	src := make([]byte, 64)
	dst := make([]byte, 64)
	for i := range src {
		src[i] = byte(i)
	}

	Memcopy(VA(uintptr(unsafe.Pointer(&src[0]))), VA(uintptr(unsafe.Pointer(&dst[0]))), 64)

	for i := range dst {
		if dst[i] != byte(i) {
			t.Fatalf("expected byte %d to be copied; got %#x", i, dst[i])
		}
	}
}
