// Package isa describes MIPS architecture configurations.
//
// A Config fixes everything the memory-management and mode-derivation
// core needs to know about a modeled CPU: the instruction-set levels and
// extensions it implements, its MMU style, TLB capacity, page granularity,
// and address widths. Configurations are plain data, so one process can
// model several CPU variants side by side.
//
// Usage:
//
//	cfg := isa.R4000Config()
//	if cfg.ISA.Has(isa.MIPS3) {
//		fmt.Println("64-bit addressing available")
//	}
package isa

// Features is a bitmask of implemented instruction-set levels and
// application-specific extensions.
type Features uint32

// Instruction-set levels and extensions.
const (
	MIPS1 Features = 1 << iota
	MIPS2
	MIPS3
	MIPS4
	MIPS5
	MIPS32
	MIPS32R2
	MIPS32R5
	MIPS32R6
	MIPS64
	MIPS64R2
	MIPS64R6
	DSP   // DSP module
	DSPR2 // DSP module, revision 2
	MSA   // SIMD architecture
	MT    // multithreading (VPE/TC)
)

// Cumulative level sets. Each level includes every level it extends, so
// revision checks reduce to single-bit tests against Features.
const (
	LevelMIPS1    = MIPS1
	LevelMIPS2    = LevelMIPS1 | MIPS2
	LevelMIPS3    = LevelMIPS2 | MIPS3
	LevelMIPS4    = LevelMIPS3 | MIPS4
	LevelMIPS5    = LevelMIPS4 | MIPS5
	LevelMIPS32   = LevelMIPS2 | MIPS32
	LevelMIPS32R2 = LevelMIPS32 | MIPS32R2
	LevelMIPS32R5 = LevelMIPS32R2 | MIPS32R5
	LevelMIPS32R6 = LevelMIPS32R5 | MIPS32R6
	LevelMIPS64   = LevelMIPS5 | MIPS32 | MIPS64
	LevelMIPS64R2 = LevelMIPS64 | MIPS32R2 | MIPS64R2
	LevelMIPS64R6 = LevelMIPS64R2 | MIPS32R6 | MIPS64R6
)

// Has reports whether every feature in mask is implemented.
func (f Features) Has(mask Features) bool {
	return f&mask == mask
}

// Is64Bit reports whether the feature set includes 64-bit addressing
// (MIPS III or any level extending it).
func (f Features) Is64Bit() bool {
	return f&MIPS3 != 0
}

// MMUType selects the address-translation strategy of a CPU variant.
type MMUType uint8

// Translation strategies.
const (
	MMUNone  MMUType = iota // no MMU: physical = virtual
	MMUFixed                // fixed block translation, no TLB
	MMUR4000                // software-refilled TLB
)

// String returns the name used in reports and error messages.
func (m MMUType) String() string {
	switch m {
	case MMUNone:
		return "none"
	case MMUFixed:
		return "fixed"
	case MMUR4000:
		return "r4000"
	default:
		return "unknown"
	}
}
