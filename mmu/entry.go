// Package mmu implements MIPS address translation: the software-managed
// TLB with its architectural maintenance operations, and the fixed and
// bare translation strategies of the MMU-less core variants.
//
// Translation is a pure lookup; the surrounding execution layer reacts to
// misses by running the guest's exception handlers and calling the
// maintenance operations, exactly as the architectural TLB instructions
// would.
package mmu

// Access is the kind of memory access being translated.
type Access uint8

// Access kinds.
const (
	AccessRead Access = iota
	AccessWrite
	AccessExecute
)

// String returns the name used in miss reports.
func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// Perm is a bitmask of permitted access kinds on a translation.
type Perm uint8

// Permission bits.
const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExecute
)

// Allows reports whether the permission set covers an access kind.
func (p Perm) Allows(a Access) bool {
	switch a {
	case AccessRead:
		return p&PermRead != 0
	case AccessWrite:
		return p&PermWrite != 0
	case AccessExecute:
		return p&PermExecute != 0
	default:
		return false
	}
}

// String renders the permission set in ls-style rwx notation.
func (p Perm) String() string {
	b := []byte("---")
	if p&PermRead != 0 {
		b[0] = 'r'
	}
	if p&PermWrite != 0 {
		b[1] = 'w'
	}
	if p&PermExecute != 0 {
		b[2] = 'x'
	}
	return string(b)
}

// Result is a successful translation: the physical address, the full
// permission set of the matched mapping, and its cacheability attribute.
type Result struct {
	PhysAddr uint64
	Perms    Perm
	CCA      uint8
}

// Subpage is one half of a TLB entry. Each entry maps a pair of adjacent
// pages; the bit just below the page boundary selects the half.
type Subpage struct {
	// PFN is the byte address of the physical frame backing this page.
	// Bits below the page size are cleared at install.
	PFN uint64

	// CCA is the cacheability and coherency attribute of the page.
	CCA uint8

	// Valid marks the page usable. A clear bit is an installed but
	// inaccessible mapping, distinct from a missing one.
	Valid bool

	// Dirty is the architectural write-enable. Translating a write
	// through a clean page misses so the handler can log the write and
	// set the bit.
	Dirty bool

	// XI inhibits instruction fetches from the page.
	XI bool

	// RI inhibits data loads from the page.
	RI bool
}

// Entry is one TLB entry: a virtual page pair, its address-space scope,
// and the two mapped subpages.
type Entry struct {
	// VPN is the virtual address of the pair, low bits cleared per
	// PageMask. Normalized at install; always zero under the pair mask.
	VPN uint64

	// PageMask widens the pair beyond the base page size. Zero means a
	// pair of base pages; each architectural step sets two further bits.
	PageMask uint64

	// ASID scopes the entry to one address space unless Global is set.
	ASID uint16

	// Global makes the entry match every ASID.
	Global bool

	// Invalid marks the slot architecturally empty. Invalid entries
	// never match and never count as live.
	Invalid bool

	// Pages holds the even (0) and odd (1) subpages.
	Pages [2]Subpage
}

// pairMask returns the mask covering the entry's full even/odd pair:
// the PageMask extension plus both base pages.
func (e *Entry) pairMask(pageBits uint) uint64 {
	return e.PageMask | (1<<(pageBits+1) - 1)
}

// selects reports whether the entry translates vaddr for asid. Invalid
// entries select nothing.
func (e *Entry) selects(vaddr uint64, asid uint16, pageBits uint) bool {
	if e.Invalid {
		return false
	}
	if !e.Global && e.ASID != asid {
		return false
	}
	return vaddr&^e.pairMask(pageBits) == e.VPN
}

// subpage returns the even or odd half covering vaddr, selected by the
// bit just below the page boundary.
func (e *Entry) subpage(vaddr uint64, pageBits uint) *Subpage {
	mask := e.pairMask(pageBits)
	if vaddr&(mask&^(mask>>1)) != 0 {
		return &e.Pages[1]
	}
	return &e.Pages[0]
}

// overlaps reports whether two entries could both match one lookup: their
// address ranges intersect and their ASID scopes are not disjoint. Either
// entry being Invalid makes the answer false.
func (e *Entry) overlaps(o *Entry, pageBits uint) bool {
	if e.Invalid || o.Invalid {
		return false
	}
	if !e.Global && !o.Global && e.ASID != o.ASID {
		return false
	}
	// Both ranges are aligned powers of two, so they intersect exactly
	// when the smaller one's base falls inside the larger one.
	return e.VPN&^o.pairMask(pageBits) == o.VPN ||
		o.VPN&^e.pairMask(pageBits) == e.VPN
}
