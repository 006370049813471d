package vmm

import "vmkernel/kernel"

var (
	// errMisaligned is raised when AddMapping, SharedMark, SharedAttach or
	// SharedDetach are given an address not aligned to the relevant
	// granularity.
	errMisaligned = &kernel.Error{Module: "vmm", Message: "address is not aligned to the required page granularity"}

	// errMappingCollision is raised by AddMapping when the target range
	// already has an active leaf mapping, or overlaps a non-empty subtree.
	errMappingCollision = &kernel.Error{Module: "vmm", Message: "mapping collides with an existing mapping"}

	// errUnmapped is raised by DelMapping, SetPagePerm, GetPagePerm and
	// Transform when the supplied address has no active mapping.
	errUnmapped = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}

	// errCorruptWalk is raised if a page table walk reaches LevelL0 without
	// finding a leaf entry, which the engine itself never produces.
	errCorruptWalk = &kernel.Error{Module: "vmm", Message: "corrupted page table walk: non-leaf entry at the base level"}

	// errOutOfMemory is raised whenever the backing PageAllocator cannot
	// supply a table page.
	errOutOfMemory = &kernel.Error{Module: "vmm", Message: "out of memory while allocating a page table page"}
)
