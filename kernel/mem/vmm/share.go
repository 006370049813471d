package vmm

import "vmkernel/kernel/mem"

// SharedCopy returns a new table whose root page is a fresh copy of pt's
// root, but whose non-leaf root entries all point at pt's own L1 pages
// rather than copies of them. Every non-leaf root entry in the copy is
// marked SHARED (it is a borrowed reference, not owned by the copy) and the
// PTE at index 0 of each referenced L1 page is marked SHARED too, pinning
// that page as shared for as long as pt (the owner) lives (I5).
func (pt *PageTable[A]) SharedCopy() PageTable[A] {
	cp := PageTable[A]{alloc: pt.alloc}
	if pt.root.IsZero() {
		return cp
	}

	newRootPA, ok := allocTablePage(pt.alloc)
	if !ok {
		panic(errOutOfMemory)
	}

	srcRoot := tableAt(pt.root)
	dstRoot := tableAt(newRootPA)
	*dstRoot = *srcRoot

	for i := range dstRoot {
		e := &dstRoot[i]
		if !e.Valid() || e.IsLeaf() {
			continue
		}
		e.SetFlags(flagShared)
		tableAt(e.PPN())[0].SetFlags(flagShared)
	}

	cp.root = newRootPA
	return cp
}

// SharedMark flags every L2 slot in [start, end) as eligible for sharing: an
// interior L1 page is allocated for any slot that is currently empty, and
// the PTE at index 0 of the (possibly pre-existing) L1 page is marked
// SHARED, the pin marker SharedAttach looks for. Slots already holding a
// HUGE leaf mapping are left untouched; they cannot be shared by this
// mechanism. start and end must be HugePageSize-aligned.
func (pt *PageTable[A]) SharedMark(start, end mem.VA) {
	if !start.IsAlignedTo(uint64(mem.HugePageSize)) || !end.IsAlignedTo(uint64(mem.HugePageSize)) || end <= start {
		panic(errMisaligned)
	}

	tablePA := pt.ensureRoot()
	root := tableAt(tablePA)
	startIdx, endIdx := pteIdx(start, LevelL2), pteIdx(end, LevelL2)

	for idx := startIdx; idx < endIdx; idx++ {
		e := &root[idx]
		if e.Valid() && e.IsLeaf() {
			continue
		}
		if !e.Valid() {
			childPA, ok := allocTablePage(pt.alloc)
			if !ok {
				panic(errOutOfMemory)
			}
			*e = 0
			e.SetPPN(childPA)
			e.SetFlags(flagValid)
		}
		tableAt(e.PPN())[0].SetFlags(flagShared)
	}
}

// SharedAttach borrows every L1 subtree in [start, end) that other has
// marked shared (via SharedMark or a prior SharedCopy), installing a SHARED
// root entry in pt that points at the same physical L1 page. A slot in pt
// that is already valid is left untouched; SharedAttach never overwrites an
// existing mapping. start and end must be HugePageSize-aligned.
func (pt *PageTable[A]) SharedAttach(other *PageTable[A], start, end mem.VA) {
	if !start.IsAlignedTo(uint64(mem.HugePageSize)) || !end.IsAlignedTo(uint64(mem.HugePageSize)) || end <= start {
		panic(errMisaligned)
	}
	if other.root.IsZero() {
		return
	}

	tablePA := pt.ensureRoot()
	selfRoot := tableAt(tablePA)
	otherRoot := tableAt(other.root)
	startIdx, endIdx := pteIdx(start, LevelL2), pteIdx(end, LevelL2)

	for idx := startIdx; idx < endIdx; idx++ {
		oe := otherRoot[idx]
		if !oe.Valid() || oe.IsLeaf() {
			continue
		}
		if !tableAt(oe.PPN())[0].HasFlag(flagShared) {
			continue
		}

		se := &selfRoot[idx]
		if se.Valid() {
			continue
		}
		*se = 0
		se.SetPPN(oe.PPN())
		se.SetFlags(flagValid | flagShared)
	}
}

// SharedDetach clears every SHARED root entry pt holds in [start, end),
// dropping pt's reference to the borrowed L1 pages without freeing them:
// they remain owned by whichever table originally called SharedMark. start
// and end must be HugePageSize-aligned.
func (pt *PageTable[A]) SharedDetach(start, end mem.VA) {
	if !start.IsAlignedTo(uint64(mem.HugePageSize)) || !end.IsAlignedTo(uint64(mem.HugePageSize)) || end <= start {
		panic(errMisaligned)
	}
	if pt.root.IsZero() {
		return
	}

	root := tableAt(pt.root)
	startIdx, endIdx := pteIdx(start, LevelL2), pteIdx(end, LevelL2)

	for idx := startIdx; idx < endIdx; idx++ {
		e := &root[idx]
		if e.Valid() && e.HasFlag(flagShared) {
			e.ClearFlags(flagShared | flagValid)
		}
	}
}
