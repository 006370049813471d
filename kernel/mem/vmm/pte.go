// Package vmm implements the three-level Sv39 page-table engine: PTE bit
// manipulation, the mapping operations (AddMapping/DelMapping/SetPagePerm/
// Transform), whole-table lifecycle (Clone/Assign/MoveFrom/Free) and the subtree
// sharing protocol used to lend a range of page tables between address
// spaces without copying them.
package vmm

import "vmkernel/kernel/mem"

// pte is a single Sv39 page table entry: V|R|W|X|U|G|A|D occupy bits 0-7,
// SHARED (engine-private, not read by the MMU) occupies bit 8, and the
// physical page number starts at bit 10.
type pte uint64

// PTE flag bits. Layout matches the Sv39 specification for bits 0-7; bit 8
// (shared) is an engine-private marker with no hardware meaning.
const (
	flagValid    pte = 1 << 0
	flagRead     pte = 1 << 1
	flagWrite    pte = 1 << 2
	flagExec     pte = 1 << 3
	flagUser     pte = 1 << 4
	flagGlobal   pte = 1 << 5
	flagAccessed pte = 1 << 6
	flagDirty    pte = 1 << 7

	// flagShared marks an interior PTE as a borrowed reference into a
	// subtree owned by another page table (see share.go), or, when set on
	// index 0 of an L1 page, pins that page as eligible for sharing.
	flagShared pte = 1 << 8

	permRWX  = flagRead | flagWrite | flagExec
	ppnShift = 10
)

// Valid reports whether the V bit is set.
func (p pte) Valid() bool {
	return p&flagValid != 0
}

// IsLeaf reports whether the entry encodes a final translation rather than a
// pointer to the next page table level. Per the Sv39 rules, any entry with
// at least one of R/W/X set is a leaf.
func (p pte) IsLeaf() bool {
	return p&permRWX != 0
}

// HasFlag reports whether every bit in flags is set.
func (p pte) HasFlag(flags pte) bool {
	return p&flags == flags
}

// SetFlags ORs flags into the entry.
func (p *pte) SetFlags(flags pte) {
	*p |= flags
}

// ClearFlags clears flags from the entry.
func (p *pte) ClearFlags(flags pte) {
	*p &^= flags
}

// PPN returns the physical page this entry points to, whether that is a
// mapped data page (leaf) or the next-level table page (interior).
func (p pte) PPN() mem.PA {
	return mem.PA((uint64(p) >> ppnShift) << mem.PageShift)
}

// SetPPN replaces the physical page number, leaving the flag bits intact.
func (p *pte) SetPPN(pa mem.PA) {
	mask := pte(^uint64(0))
	mask <<= ppnShift
	*p = (*p &^ mask) | pte((uint64(pa)>>mem.PageShift)<<ppnShift)
}

// Perms unpacks the R/W/X/U flag bits into a mem.Perm value.
func (p pte) Perms() mem.Perm {
	var perm mem.Perm
	if p&flagRead != 0 {
		perm |= mem.PermR
	}
	if p&flagWrite != 0 {
		perm |= mem.PermW
	}
	if p&flagExec != 0 {
		perm |= mem.PermX
	}
	if p&flagUser != 0 {
		perm |= mem.PermU
	}
	return perm
}

// SetPerms replaces the R/W/X/U flag bits with the ones set in perm, leaving
// V, G, A, D and SHARED untouched.
func (p *pte) SetPerms(perm mem.Perm) {
	p.ClearFlags(flagRead | flagWrite | flagExec | flagUser)
	if perm.Has(mem.PermR) {
		p.SetFlags(flagRead)
	}
	if perm.Has(mem.PermW) {
		p.SetFlags(flagWrite)
	}
	if perm.Has(mem.PermX) {
		p.SetFlags(flagExec)
	}
	if perm.Has(mem.PermU) {
		p.SetFlags(flagUser)
	}
}

// Level identifies a depth in the three-level Sv39 table (and, for a leaf
// entry reached at that depth, the mapping's granularity).
type Level uint8

// The three Sv39 levels. LevelL2 is the root table; a leaf placed at LevelL2
// covers a HUGE (1GiB) region, at LevelL1 a MID (2MiB) region, at LevelL0 the
// BASE (4KiB) page.
const (
	LevelL2 Level = iota
	LevelL1
	LevelL0
)

// pteShift gives, for each level, the bit position of the VPN field used to
// index into that level's table (and, equivalently, log2 of the leaf size a
// mapping placed at that level covers).
var pteShift = [3]uint{30, 21, 12}

// pteIdx extracts the 9-bit index into the table at level from a virtual
// address.
func pteIdx(va mem.VA, level Level) uint {
	return uint(va>>pteShift[level]) & 0x1FF
}

// PageSize returns the size of a leaf mapping placed at level.
func PageSize(level Level) mem.Size {
	switch level {
	case LevelL2:
		return mem.HugePageSize
	case LevelL1:
		return mem.MidPageSize
	default:
		return mem.PageSize
	}
}
