package mmu

// Mapper translates virtual addresses under one of the three modeled MMU
// strategies: none, fixed block translation, or the software-refilled TLB
// (which implements Mapper itself). The set is closed; a CPU variant's
// strategy is fixed by its configuration.
type Mapper interface {
	// Map translates vaddr for the given access kind and address space.
	// It returns a translation Result or a *Miss, and never mutates the
	// mapper.
	Map(vaddr uint64, access Access, asid uint16) (Result, error)
}

// NoneMMU is the identity strategy of MMU-less CPU variants: physical
// equals virtual, every access permitted.
type NoneMMU struct {
	// CCA is the cacheability attribute reported for every mapping.
	CCA uint8
}

// Map implements Mapper. It never fails.
func (n *NoneMMU) Map(vaddr uint64, access Access, asid uint16) (Result, error) {
	return Result{
		PhysAddr: vaddr,
		Perms:    PermRead | PermWrite | PermExecute,
		CCA:      n.CCA,
	}, nil
}

// Window is one range of a fixed block-translation map.
type Window struct {
	// Base and Size bound the translated virtual range [Base, Base+Size).
	Base uint64
	Size uint64

	// PhysBase is the physical address of Base; the window maps by
	// constant offset.
	PhysBase uint64

	// Perms is the access set granted across the window.
	Perms Perm

	// CCA is the cacheability attribute of the window.
	CCA uint8
}

// contains reports whether the window covers vaddr.
func (w *Window) contains(vaddr uint64) bool {
	return vaddr >= w.Base && vaddr-w.Base < w.Size
}

// FixedMMU is the block-translation strategy of TLB-less CPU variants: an
// ordered window table searched first-match. ASIDs are ignored.
type FixedMMU struct {
	windows []Window
}

// NewFixedMMU creates a fixed MMU over the given window table. The table
// is searched in order; earlier windows shadow later ones.
func NewFixedMMU(windows []Window) *FixedMMU {
	return &FixedMMU{windows: windows}
}

// DefaultFixedWindows returns the classic fixed-translation core map: the
// low 2 GiB offset-mapped into high physical memory, the two unmapped
// 512 MiB segments folded onto low memory (one cached, one not), and the
// top 1 GiB mapped through unchanged.
func DefaultFixedWindows() []Window {
	rwx := PermRead | PermWrite | PermExecute
	return []Window{
		{Base: 0x0000_0000, Size: 0x8000_0000, PhysBase: 0x4000_0000, Perms: rwx, CCA: 3},
		{Base: 0x8000_0000, Size: 0x2000_0000, PhysBase: 0x0000_0000, Perms: rwx, CCA: 3},
		{Base: 0xA000_0000, Size: 0x2000_0000, PhysBase: 0x0000_0000, Perms: rwx, CCA: 2},
		{Base: 0xC000_0000, Size: 0x4000_0000, PhysBase: 0xC000_0000, Perms: rwx, CCA: 3},
	}
}

// Map implements Mapper by first-match lookup in the window table. An
// address outside every window misses as a refill; a window that does not
// grant the access kind denies it.
func (f *FixedMMU) Map(vaddr uint64, access Access, asid uint16) (Result, error) {
	for i := range f.windows {
		w := &f.windows[i]
		if !w.contains(vaddr) {
			continue
		}
		if !w.Perms.Allows(access) {
			return Result{}, &Miss{Kind: MissAccessDenied, VAddr: vaddr, Acc: access}
		}
		return Result{
			PhysAddr: w.PhysBase + (vaddr - w.Base),
			Perms:    w.Perms,
			CCA:      w.CCA,
		}, nil
	}
	return Result{}, &Miss{Kind: MissRefill, VAddr: vaddr, Acc: access}
}
