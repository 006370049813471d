package mem

// Perm is a set of page permission/ownership flags, packed into 4 bits the
// same way the Sv39 PTE stores them.
type Perm uint8

// Permission flags. They keep the R/W/X/U order of a page table entry but
// sit one bit lower (a Perm has no V bit), so the page-table engine converts
// between the two flag by flag.
const (
	PermR Perm = 1 << iota
	PermW
	PermX
	PermU
)

// Has returns true if p has all the bits set in flags.
func (p Perm) Has(flags Perm) bool {
	return p&flags == flags
}
