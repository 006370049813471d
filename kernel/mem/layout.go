package mem

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// Page granularities supported by the Sv39 MMU.
const (
	// PageShift is log2(PageSize); BASE-level (L0) leaf granularity.
	PageShift = 12
	PageSize  = Size(1 << PageShift)

	// MidPageShift is log2(MidPageSize); MID-level (L1) leaf granularity.
	MidPageShift = 21
	MidPageSize  = Size(1 << MidPageShift)

	// HugePageShift is log2(HugePageSize); HUGE-level (L2) leaf granularity.
	HugePageShift = 30
	HugePageSize  = Size(1 << HugePageShift)
)

// Fixed address-space layout.
const (
	// UserStart and UserEnd bound the user half of the address space.
	UserStart = VA(1 * uint64(Gb))
	UserEnd   = VA(256 * uint64(Gb))

	// DirectMapBase is the start of the direct physical map: DirectMapBase+pa
	// is always a valid translation for pa in [0, DirectMapLimit).
	DirectMapBase  = VA(0xFFFF_FFC0_0000_0000)
	DirectMapLimit = PA(128 * uint64(Gb))

	// VmallocStart and VmallocEnd bound the window searched by the vmalloc
	// allocator for virtually-contiguous, physically-fragmented mappings.
	VmallocStart = VA(0xFFFF_FFE0_0000_0000)
	VmallocEnd   = VA(0xFFFF_FFF4_0000_0000)

	// KernelImageStart and KernelImageEnd bound the statically linked
	// kernel image.
	KernelImageStart = VA(0xFFFF_FFFF_0000_0000)
	KernelImageEnd   = VA(0xFFFF_FFFF_FFFF_FFFF)
)

// ToVA translates a physical address to its direct-map virtual address. It
// panics if pa falls outside [0, DirectMapLimit); the kernel image and
// vmalloc windows are not direct-map addressable and must never be passed
// here.
func ToVA(pa PA) VA {
	if uint64(pa) >= uint64(DirectMapLimit) {
		panic(ErrAddressOutOfDirectMapWindow)
	}
	return DirectMapBase.Add(int64(pa))
}

// ToPA translates a direct-map virtual address back to the physical address
// it was derived from. It panics if va does not lie within the direct map
// window.
func ToPA(va VA) PA {
	if va < DirectMapBase || uint64(va)-uint64(DirectMapBase) >= uint64(DirectMapLimit) {
		panic(ErrAddressOutOfPhysicalWindow)
	}
	return PA(uint64(va) - uint64(DirectMapBase))
}

// CanTransform reports whether pa lies inside the direct map window without
// panicking, for callers that need to probe before committing to ToVA.
func CanTransform(pa PA) bool {
	return uint64(pa) < uint64(DirectMapLimit)
}

// CanTransformVA is the VA-side probe matching CanTransform: it reports
// whether ToPA would accept va.
func CanTransformVA(va VA) bool {
	return va >= DirectMapBase && uint64(va)-uint64(DirectMapBase) < uint64(DirectMapLimit)
}
