package cp0

import (
	"github.com/sarchlab/mipsim/fpu"
	"github.com/sarchlab/mipsim/isa"
)

// Flags is the cached derived-mode word consulted on the execution hot
// path instead of re-testing individual control-register bits. It is
// rebuilt from scratch by Derive whenever a dependent register changes.
type Flags uint32

// Flag bits. The low two bits hold the effective privilege mode in the
// Status.KSU encoding.
const (
	FlagKSUMask    Flags = 0x3 // effective privilege field
	FlagKernel     Flags = 0x0
	FlagSupervisor Flags = 0x1
	FlagUser       Flags = 0x2

	FlagDebug    Flags = 1 << 2  // debug mode
	Flag64       Flags = 1 << 3  // 64-bit addressing enabled
	FlagAddrWrap Flags = 1 << 4  // wrap effective addresses to 32 bits
	FlagCP0      Flags = 1 << 5  // coprocessor 0 usable
	FlagFPU      Flags = 1 << 6  // FPU usable
	FlagF64      Flags = 1 << 7  // 64-bit FPU register file
	FlagCOP1X    Flags = 1 << 8  // COP1X (indexed FP) instructions usable
	FlagSBRI     Flags = 1 << 9  // SDBBP raises reserved instruction
	FlagDSP      Flags = 1 << 10 // DSP module usable
	FlagDSPR2    Flags = 1 << 11 // DSP module revision 2 usable
	FlagMSA      Flags = 1 << 12 // SIMD architecture usable
	FlagFRE      Flags = 1 << 13 // FR=0 register emulation active
	FlagELPA     Flags = 1 << 14 // extended physical addressing active
	FlagERL      Flags = 1 << 15 // error level
)

// Mode returns the effective privilege field of the flags word. Exception
// level, error level, and debug mode all force kernel.
func (f Flags) Mode() Flags {
	return f & FlagKSUMask
}

// Derive recomputes the derived-mode word from register state and the
// configured feature set. Every bit is rebuilt on each call; callers
// replace their cached word wholesale.
func Derive(r *Registers, feats isa.Features) Flags {
	var f Flags

	if r.Status&StatusERL != 0 {
		f |= FlagERL
	}
	if r.DebugMode() {
		f |= FlagDebug
	}
	if r.Status&(StatusEXL|StatusERL) == 0 && !r.DebugMode() {
		f |= Flags(r.Status>>StatusKSUShift) & FlagKSUMask
	}

	if feats.Has(isa.MIPS3) &&
		(f.Mode() != FlagUser ||
			r.Status&StatusPX != 0 ||
			r.Status&StatusUX != 0) {
		f |= Flag64
	}

	switch {
	case !feats.Has(isa.MIPS3):
		f |= FlagAddrWrap
	case f.Mode() == FlagUser && r.Status&StatusUX == 0:
		f |= FlagAddrWrap
	case feats.Has(isa.MIPS64R6):
		// Supervisor and kernel address wrapping is specified from
		// revision 6 on.
		if (f.Mode() == FlagSupervisor && r.Status&StatusSX == 0) ||
			(f.Mode() == FlagKernel && r.Status&StatusKX == 0) {
			f |= FlagAddrWrap
		}
	}

	if (r.Status&StatusCU0 != 0 && !feats.Has(isa.MIPS32R6)) ||
		f.Mode() == FlagKernel {
		f |= FlagCP0
	}
	if r.Status&StatusCU1 != 0 {
		f |= FlagFPU
	}
	if r.Status&StatusFR != 0 {
		f |= FlagF64
	}

	if f.Mode() != FlagKernel && r.Config5&Config5SBRI != 0 {
		f |= FlagSBRI
	}

	if feats.Has(isa.DSPR2) {
		if r.Status&StatusMX != 0 {
			f |= FlagDSP | FlagDSPR2
		}
	} else if feats.Has(isa.DSP) {
		if r.Status&StatusMX != 0 {
			f |= FlagDSP
		}
	}

	switch {
	case feats.Has(isa.MIPS32R2):
		if r.FCR0&fpu.FCR0F64 != 0 {
			f |= FlagCOP1X
		}
	case feats.Has(isa.MIPS32):
		if f&Flag64 != 0 {
			f |= FlagCOP1X
		}
	case feats.Has(isa.MIPS4):
		// MIPS IV implementations gate their extensions to MIPS III
		// with the CU3 bit.
		if r.Status&StatusCU3 != 0 {
			f |= FlagCOP1X
		}
	}

	if feats.Has(isa.MSA) && r.Config5&Config5MSAEn != 0 {
		f |= FlagMSA
	}
	if r.FCR0&fpu.FCR0FREP != 0 && r.Config5&Config5FRE != 0 {
		f |= FlagFRE
	}
	if r.Config3&Config3LPA != 0 && r.PageGrain&PageGrainELPA != 0 {
		f |= FlagELPA
	}

	return f
}

// PhysMask returns the physical-address mask matching a flags word. With
// extended physical addressing active the full configured width is usable;
// otherwise addressing reverts to the base width of the ISA family
// (36 bits for 64-bit ISAs, 32 otherwise).
func PhysMask(f Flags, cfg *isa.Config) uint64 {
	if f&FlagELPA != 0 {
		if cfg.PhysAddrBits >= 64 {
			return ^uint64(0)
		}
		return (1 << cfg.PhysAddrBits) - 1
	}
	if cfg.Is64Bit() {
		return (1 << 36) - 1
	}
	return (1 << 32) - 1
}
