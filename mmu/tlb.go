package mmu

import (
	"fmt"

	"github.com/sarchlab/mipsim/isa"
)

// TLB is the software-refilled translation store: a fixed arena of
// entries indexed by the architectural entry number, a wired boundary
// pinning low entries against random replacement, and the deterministic
// write-random generator.
//
// The store maintains one invariant: no two live entries can match the
// same lookup. Every install sweeps and invalidates overlapping entries
// first, so translation never has to arbitrate between matches.
type TLB struct {
	entries []Entry
	wired   int

	pageBits uint
	segMask  uint64

	// Write-random generator state.
	seed uint32
	prev int
}

// NewTLB creates an empty TLB with the capacity and address geometry of
// the given CPU variant. Every slot starts architecturally invalid.
func NewTLB(cfg *isa.Config) *TLB {
	t := &TLB{
		entries:  make([]Entry, cfg.TLBEntries),
		pageBits: cfg.PageBits,
		segMask:  cfg.SegMask(),
		seed:     1,
	}
	for i := range t.entries {
		t.entries[i].Invalid = true
	}
	return t
}

// Capacity returns the number of entry slots.
func (t *TLB) Capacity() int {
	return len(t.entries)
}

// Wired returns the wired boundary: entries below it are never chosen by
// WriteRandom.
func (t *TLB) Wired() int {
	return t.wired
}

// SetWired moves the wired boundary. At least one slot must stay
// replaceable.
func (t *TLB) SetWired(n int) error {
	if n < 0 || n >= len(t.entries) {
		return fmt.Errorf("wired count %d out of range [0,%d)", n, len(t.entries))
	}
	t.wired = n
	return nil
}

// SetSeed resets the write-random generator. Two stores with the same
// seed, wired boundary, and call sequence choose the same victims.
func (t *TLB) SetSeed(seed uint32) {
	t.seed = seed
	t.prev = 0
}

// Live returns the number of entries that can currently match.
func (t *TLB) Live() int {
	n := 0
	for i := range t.entries {
		if !t.entries[i].Invalid {
			n++
		}
	}
	return n
}

func (t *TLB) checkIndex(index int) error {
	if index < 0 || index >= len(t.entries) {
		return &IndexError{Index: index, Capacity: len(t.entries)}
	}
	return nil
}

// normalize masks the entry fields to the store's geometry: the page mask
// to the implemented segment, the VPN to its page-pair boundary, and the
// frame addresses to their page boundaries.
func (t *TLB) normalize(e *Entry) {
	e.PageMask &= t.segMask
	mask := e.pairMask(t.pageBits)
	e.VPN &= t.segMask &^ mask
	page := mask >> 1
	e.Pages[0].PFN &^= page
	e.Pages[1].PFN &^= page
}

// installAt normalizes the entry, invalidates every other live entry it
// overlaps, and writes the slot. Installing an invalid entry leaves a
// deliberately empty slot and sweeps nothing.
func (t *TLB) installAt(index int, e Entry) {
	t.normalize(&e)
	if !e.Invalid {
		for i := range t.entries {
			if i == index {
				continue
			}
			if t.entries[i].overlaps(&e, t.pageBits) {
				t.entries[i].Invalid = true
			}
		}
	}
	t.entries[index] = e
}

// WriteIndexed installs an entry at an index chosen by the guest. An
// out-of-range index is reported, never reduced into range.
func (t *TLB) WriteIndexed(index int, e Entry) error {
	if err := t.checkIndex(index); err != nil {
		return err
	}
	t.installAt(index, e)
	return nil
}

// WriteRandom installs an entry at a pseudo-randomly chosen non-wired
// index and returns it. Victim selection is deterministic for a given
// seed; see nextVictim for the tie-break rules.
func (t *TLB) WriteRandom(e Entry) int {
	index := t.nextVictim()
	t.installAt(index, e)
	return index
}

// Read returns a copy of the entry at index, in normalized form.
func (t *TLB) Read(index int) (Entry, error) {
	if err := t.checkIndex(index); err != nil {
		return Entry{}, err
	}
	return t.entries[index], nil
}

// Probe returns the index of the unique entry matching vaddr in the given
// address space, or false if none does.
func (t *TLB) Probe(vaddr uint64, asid uint16) (int, bool) {
	index := t.lookup(vaddr, asid)
	if index < 0 {
		return 0, false
	}
	return index, true
}

// Invalidate marks the entry at index unusable. With extended set it also
// invalidates every other live entry overlapping the named one, sweeping
// out duplicates that a reconfiguration would otherwise leave behind.
func (t *TLB) Invalidate(index int, extended bool) error {
	if err := t.checkIndex(index); err != nil {
		return err
	}
	victim := t.entries[index]
	t.entries[index].Invalid = true
	if extended && !victim.Invalid {
		for i := range t.entries {
			if i == index {
				continue
			}
			if t.entries[i].overlaps(&victim, t.pageBits) {
				t.entries[i].Invalid = true
			}
		}
	}
	return nil
}

// InvalidateASID marks every live non-global entry of one address space
// unusable. Global entries and other address spaces are untouched.
func (t *TLB) InvalidateASID(asid uint16) {
	for i := range t.entries {
		e := &t.entries[i]
		if !e.Invalid && !e.Global && e.ASID == asid {
			e.Invalid = true
		}
	}
}

// Flush marks every entry unusable, as on a context switch or ASID
// exhaustion.
func (t *TLB) Flush() {
	for i := range t.entries {
		t.entries[i].Invalid = true
	}
}

// lookup scans the whole store for a match. More than one match means an
// install failed to keep the no-overlap invariant and is a defect of this
// package, not guest-visible state, so it panics.
func (t *TLB) lookup(vaddr uint64, asid uint16) int {
	match := -1
	for i := range t.entries {
		if !t.entries[i].selects(vaddr, asid, t.pageBits) {
			continue
		}
		if match >= 0 {
			panic(fmt.Sprintf(
				"mmu: tlb entries %d and %d both match %#x asid %#x",
				match, i, vaddr, asid))
		}
		match = i
	}
	return match
}

// Translate looks vaddr up in the store. A missing entry, an invalid
// subpage, a write through a clean page, and an inhibited access each
// miss with their own kind; everything else translates. Translation
// never mutates the store.
func (t *TLB) Translate(vaddr uint64, access Access, asid uint16) (Result, error) {
	vaddr &= t.segMask

	index := t.lookup(vaddr, asid)
	if index < 0 {
		return Result{}, &Miss{Kind: MissRefill, VAddr: vaddr, Acc: access}
	}

	e := &t.entries[index]
	sub := e.subpage(vaddr, t.pageBits)

	if !sub.Valid {
		return Result{}, &Miss{Kind: MissInvalid, VAddr: vaddr, Acc: access}
	}
	if access == AccessWrite && !sub.Dirty {
		// Architecturally a TLB-modified exception: the handler marks
		// the page dirty and retries, so writes to clean pages trap
		// exactly once.
		return Result{}, &Miss{Kind: MissModified, VAddr: vaddr, Acc: access}
	}
	if access == AccessExecute && sub.XI {
		return Result{}, &Miss{Kind: MissAccessDenied, VAddr: vaddr, Acc: access}
	}
	if access == AccessRead && sub.RI {
		return Result{}, &Miss{Kind: MissAccessDenied, VAddr: vaddr, Acc: access}
	}

	perms := PermRead
	if sub.Dirty {
		perms |= PermWrite
	}
	if !sub.XI {
		perms |= PermExecute
	}

	mask := e.pairMask(t.pageBits)
	return Result{
		PhysAddr: sub.PFN | vaddr&(mask>>1),
		Perms:    perms,
		CCA:      sub.CCA,
	}, nil
}

// Map implements Mapper.
func (t *TLB) Map(vaddr uint64, access Access, asid uint16) (Result, error) {
	return t.Translate(vaddr, access, asid)
}
