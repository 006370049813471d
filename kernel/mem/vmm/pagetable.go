package vmm

import "vmkernel/kernel/mem"

// PageTable is a three-level Sv39 page table, parameterized by the
// allocator used to obtain and release its own table pages. This mirrors
// the original implementation's template parameterization over the
// allocator type; in Go it becomes a type parameter bounded by
// PageAllocator.
type PageTable[A PageAllocator] struct {
	root  mem.PA
	alloc A
}

// NewPageTable returns an empty page table that will use alloc for every
// table page it needs. The root page is allocated lazily, on first use.
func NewPageTable[A PageAllocator](alloc A) PageTable[A] {
	return PageTable[A]{alloc: alloc}
}

// Entry returns the physical address of the root table page, or zero if the
// table has never been populated.
func (pt *PageTable[A]) Entry() mem.PA {
	return pt.root
}

func (pt *PageTable[A]) ensureRoot() mem.PA {
	if pt.root.IsZero() {
		pa, ok := allocTablePage(pt.alloc)
		if !ok {
			panic(errOutOfMemory)
		}
		pt.root = pa
	}
	return pt.root
}

// AddMapping installs a translation from va to pa at the given leaf level,
// creating any missing interior tables along the way. va and pa must both be
// aligned to PageSize(level). Mapping a region that already has an active
// mapping, whether a leaf at an earlier level or any page within a
// non-empty subtree, panics.
func (pt *PageTable[A]) AddMapping(va mem.VA, pa mem.PA, perm mem.Perm, level Level) {
	if !va.IsAlignedTo(uint64(PageSize(level))) || !pa.IsAlignedTo(uint64(PageSize(level))) {
		panic(errMisaligned)
	}

	tablePA := pt.ensureRoot()
	for d := LevelL2; d < level; d++ {
		table := tableAt(tablePA)
		entry := &table[pteIdx(va, d)]
		switch {
		case !entry.Valid():
			childPA, ok := allocTablePage(pt.alloc)
			if !ok {
				panic(errOutOfMemory)
			}
			*entry = 0
			entry.SetPPN(childPA)
			entry.SetFlags(flagValid)
		case entry.IsLeaf():
			panic(errMappingCollision)
		}
		tablePA = entry.PPN()
	}

	table := tableAt(tablePA)
	idx := pteIdx(va, level)
	entry := &table[idx]
	if entry.Valid() {
		if entry.IsLeaf() {
			panic(errMappingCollision)
		}
		if !subtreeEmpty(entry.PPN(), level+1) {
			panic(errMappingCollision)
		}
		freeInteriorEntry(pt.alloc, entry, level)
	}

	*entry = 0
	entry.SetPPN(pa)
	entry.SetFlags(flagValid)
	entry.SetPerms(perm)
}

// DelMapping removes the leaf mapping covering va, whatever level it was
// installed at. It does not release the data page itself, nor does it flush
// any TLB entry; callers on real hardware must do that separately. Deleting
// an address with no active mapping panics.
func (pt *PageTable[A]) DelMapping(va mem.VA) {
	entry, _ := pt.walkToLeaf(va)
	entry.ClearFlags(flagValid)
}

// SetPagePerm replaces the permission bits of the leaf mapping covering va.
// It panics if va is not mapped.
func (pt *PageTable[A]) SetPagePerm(va mem.VA, perm mem.Perm) {
	entry, _ := pt.walkToLeaf(va)
	entry.SetPerms(perm)
}

// GetPagePerm returns the permission bits of the leaf mapping covering va.
// It panics if va is not mapped; callers must check with a prior lookup if
// an unmapped address is a valid possibility.
func (pt *PageTable[A]) GetPagePerm(va mem.VA) mem.Perm {
	entry, _ := pt.walkToLeaf(va)
	return entry.Perms()
}

// Transform walks the table and returns the physical address va currently
// translates to, preserving the low-order offset within whatever leaf
// granularity the mapping was made at. It panics if va is not mapped.
func (pt *PageTable[A]) Transform(va mem.VA) mem.PA {
	entry, level := pt.walkToLeaf(va)
	offsetMask := uint64(1)<<pteShift[level] - 1
	return entry.PPN().Add(int64(uint64(va) & offsetMask))
}

// walkToLeaf descends the table from the root until it reaches a leaf entry
// covering va, returning that entry and the level it was found at. It
// panics with errUnmapped if it hits an invalid entry, and with
// errCorruptWalk if it runs off the bottom of the table without finding a
// leaf (which can only happen if some other code wrote a non-leaf entry at
// LevelL0, which the engine itself never does).
func (pt *PageTable[A]) walkToLeaf(va mem.VA) (*pte, Level) {
	if pt.root.IsZero() {
		panic(errUnmapped)
	}

	tablePA := pt.root
	for level := LevelL2; ; level++ {
		table := tableAt(tablePA)
		entry := &table[pteIdx(va, level)]
		if !entry.Valid() {
			panic(errUnmapped)
		}
		if entry.IsLeaf() {
			return entry, level
		}
		if level == LevelL0 {
			panic(errCorruptWalk)
		}
		tablePA = entry.PPN()
	}
}

// subtreeEmpty reports whether the table at tablePA (itself found at the
// given depth) has no leaf descendant anywhere beneath it.
func subtreeEmpty(tablePA mem.PA, depth Level) bool {
	table := tableAt(tablePA)
	for _, e := range table {
		if !e.Valid() {
			continue
		}
		if e.IsLeaf() {
			return false
		}
		if !subtreeEmpty(e.PPN(), depth+1) {
			return false
		}
	}
	return true
}

// freeInteriorEntry releases the table page entry points at, along with
// every owned descendant, then clears entry itself. depth is the level at
// which entry lives: only at LevelL2 (the root table) does a SHARED flag
// mean "borrowed, do not follow" (see share.go and I4); at any deeper level
// a SHARED bit is the orthogonal pin marker used by SharedAttach and is not
// a free-time signal.
func freeInteriorEntry[A PageAllocator](alloc A, entry *pte, depth Level) {
	if depth == LevelL2 && entry.HasFlag(flagShared) {
		*entry = 0
		return
	}

	childPA := entry.PPN()
	freeChildren(alloc, childPA, depth+1)
	alloc.DeallocPage(paToVAFn(childPA), 1)
	*entry = 0
}

// freeChildren releases every owned interior descendant reachable from the
// table at tablePA, without releasing tablePA itself. depth is the level
// tablePA's own entries live at.
func freeChildren[A PageAllocator](alloc A, tablePA mem.PA, depth Level) {
	table := tableAt(tablePA)
	for i := range table {
		e := &table[i]
		if !e.Valid() || e.IsLeaf() {
			continue
		}
		freeInteriorEntry(alloc, e, depth)
	}
}

// Free releases every table page owned by pt, skipping any subtree borrowed
// via SharedAttach, and leaves pt empty and safe to reuse. Go has no
// destructors, so this stands in for the original's destructor: it must be
// called explicitly. Free never releases the data pages a leaf mapping
// points to: ownership of mapped memory belongs to whoever called
// AddMapping, not to the table. Calling Free on an already-empty table is a
// no-op.
func (pt *PageTable[A]) Free() {
	if pt.root.IsZero() {
		return
	}
	freeChildren(pt.alloc, pt.root, LevelL2)
	pt.alloc.DeallocPage(paToVAFn(pt.root), 1)
	pt.root = 0
}

// Clone returns a deep, fully independent copy of pt: every interior table
// is duplicated and every leaf PTE is copied verbatim, using pt's own
// allocator for the new pages. Unlike SharedCopy, Clone does not preserve
// SHARED markers; a clone of a table that itself borrowed a subtree via
// SharedAttach fully materializes an independent copy of that subtree.
func (pt *PageTable[A]) Clone() PageTable[A] {
	dst := PageTable[A]{alloc: pt.alloc}
	if !pt.root.IsZero() {
		dst.root = copySubtree(pt.alloc, pt.root)
	}
	return dst
}

// Assign replaces pt's contents with a deep copy of other, first releasing
// whatever pt previously owned, and returns pt.
func (pt *PageTable[A]) Assign(other *PageTable[A]) *PageTable[A] {
	pt.Free()
	if !other.root.IsZero() {
		pt.root = copySubtree(pt.alloc, other.root)
	}
	return pt
}

// MoveFrom transfers ownership of src's root to pt, leaving src empty. Go
// has no implicit move semantics, so this stands in for the original's move
// constructor/assignment.
func (pt *PageTable[A]) MoveFrom(src *PageTable[A]) {
	pt.root = src.root
	src.root = 0
}

func copySubtree[A PageAllocator](alloc A, srcTablePA mem.PA) mem.PA {
	dstTablePA, ok := allocTablePage(alloc)
	if !ok {
		panic(errOutOfMemory)
	}
	srcTable := tableAt(srcTablePA)
	dstTable := tableAt(dstTablePA)
	for i := range srcTable {
		e := srcTable[i]
		if !e.Valid() {
			continue
		}
		// The copy owns every page it references outright, even where the
		// source only borrowed or pinned a subtree, so no SHARED marker may
		// survive into it: a stale one would make Free skip a page the copy
		// does own.
		e.ClearFlags(flagShared)
		if e.IsLeaf() {
			dstTable[i] = e
			continue
		}
		childPA := copySubtree(alloc, e.PPN())
		e.SetPPN(childPA)
		dstTable[i] = e
	}
	return dstTablePA
}
