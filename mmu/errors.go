package mmu

import (
	"errors"
	"fmt"
)

// MissKind classifies a translation miss. Each kind maps to a distinct
// guest exception in the surrounding execution layer.
type MissKind uint8

// Miss kinds.
const (
	// MissRefill means no entry matched; the guest refills the TLB.
	MissRefill MissKind = iota

	// MissInvalid means the matched subpage has Valid clear.
	MissInvalid

	// MissModified means a write hit a subpage with Dirty clear. The
	// guest marks the page writable and retries.
	MissModified

	// MissAccessDenied means an inhibit bit blocked the access.
	MissAccessDenied
)

// String returns the name used in miss reports.
func (k MissKind) String() string {
	switch k {
	case MissRefill:
		return "refill"
	case MissInvalid:
		return "invalid"
	case MissModified:
		return "modified"
	case MissAccessDenied:
		return "access-denied"
	default:
		return "unknown"
	}
}

// Miss reports a failed translation. Misses are expected and frequent;
// callers dispatch on Kind to raise the matching guest exception.
type Miss struct {
	Kind  MissKind
	VAddr uint64
	Acc   Access
}

func (m *Miss) Error() string {
	return fmt.Sprintf("tlb %s miss on %s at %#x", m.Kind, m.Acc, m.VAddr)
}

// AsMiss unwraps a translation miss from an error chain.
func AsMiss(err error) (*Miss, bool) {
	var m *Miss
	if errors.As(err, &m) {
		return m, true
	}
	return nil, false
}

// IndexError reports a maintenance operation on an index outside the TLB.
// Out-of-range indices are a caller defect and are surfaced, never
// wrapped back into range.
type IndexError struct {
	Index    int
	Capacity int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("tlb index %d out of range [0,%d)", e.Index, e.Capacity)
}
