// Package cp0 models the MIPS System Control Coprocessor (CP0) state that
// the memory-management core reads: privilege and interrupt control,
// configuration registers, multithreading control, and the cached
// derived-mode flags recomputed from them.
//
// Register state is mutated only by the surrounding execution layer; this
// package treats it as read-only input to pure derivation functions.
package cp0

// Registers holds one CPU context's control registers. Only the registers
// and fields the derivation core consumes are modeled; the execution layer
// owns their values.
type Registers struct {
	// EntryHi holds the current address-space identifier in its low bits
	// and the VPN of the last TLB exception elsewhere. Only the ASID is
	// read here.
	EntryHi uint64

	// Status is the processor status register: interrupt enable,
	// exception/error levels, privilege mode, and coprocessor enables.
	Status uint32

	// Cause records pending interrupt lines in its IP field.
	Cause uint32

	// Config0 through Config5 describe the implementation. The derivation
	// core reads Config3 (extension presence) and Config5 (extension
	// enables); Config0's K0 field supplies the default cacheability of
	// unmapped translations.
	Config0 uint32
	Config1 uint32
	Config2 uint32
	Config3 uint32
	Config4 uint32
	Config5 uint32

	// PageGrain controls extended physical addressing and the inhibit
	// bits of TLB entries.
	PageGrain uint32

	// Debug is the EJTAG debug register; only the DM bit is read here.
	Debug uint32

	// VPEConf0 and VPControl configure this virtual processing element.
	VPEConf0  uint32
	VPControl uint32

	// ActiveTC is the thread context currently bound to this CPU.
	ActiveTC ThreadContext

	// FCR0 is the floating-point implementation register (FIR).
	FCR0 uint32

	// FCR31 is the floating-point control/status register.
	FCR31 uint32

	// MSACSR is the SIMD-architecture control/status register.
	MSACSR uint32
}

// ThreadContext holds the per-thread CP0 state of one MT thread context.
type ThreadContext struct {
	// TCStatus carries the thread's activation and interrupt-exemption
	// bits.
	TCStatus uint32

	// TCHalt halts the thread while its low bit is set.
	TCHalt uint32
}

// MVP holds the multi-VPE control state shared by every virtual processing
// element of one core. Sibling contexts point at the same MVP.
type MVP struct {
	// Control is the MVPControl register.
	Control uint32
}

// Status register bits.
const (
	StatusIE  = 1 << 0 // interrupt enable
	StatusEXL = 1 << 1 // exception level
	StatusERL = 1 << 2 // error level
	StatusUX  = 1 << 5 // 64-bit user addressing
	StatusSX  = 1 << 6 // 64-bit supervisor addressing
	StatusKX  = 1 << 7 // 64-bit kernel addressing
	StatusPX  = 1 << 23 // 64-bit operations in user mode
	StatusMX  = 1 << 24 // DSP extension enable
	StatusFR  = 1 << 26 // 64-bit floating-point registers
	StatusCU0 = 1 << 28 // coprocessor 0 usable in user mode
	StatusCU1 = 1 << 29 // coprocessor 1 (FPU) usable
	StatusCU3 = 1 << 31 // coprocessor 3 usable (MIPS IV extensions)

	// StatusKSUShift and StatusKSUMask select the two-bit privilege
	// field: 0 kernel, 1 supervisor, 2 user.
	StatusKSUShift = 3
	StatusKSUMask  = 0x3 << StatusKSUShift

	// StatusIMShift and StatusIMMask select the interrupt-mask field,
	// aligned with the Cause IP field.
	StatusIMShift = 8
	StatusIMMask  = 0xFF << StatusIMShift
)

// Cause register bits.
const (
	// CauseIPShift and CauseIPMask select the pending-interrupt field.
	CauseIPShift = 8
	CauseIPMask  = 0xFF << CauseIPShift
)

// EntryHi register bits.
const (
	// EntryHiASIDMask selects the address-space identifier.
	EntryHiASIDMask = 0xFF
)

// Config0 register bits.
const (
	// Config0K0Mask selects the kseg0 cacheability attribute, used as the
	// default attribute for unmapped translations.
	Config0K0Mask = 0x7
)

// Config3 register bits.
const (
	Config3MT   = 1 << 2  // multithreading module implemented
	Config3VInt = 1 << 5  // vectored interrupts implemented
	Config3VEIC = 1 << 6  // external interrupt controller present
	Config3LPA  = 1 << 7  // large physical addressing available
	Config3DSP  = 1 << 10 // DSP module implemented
	Config3DSP2 = 1 << 11 // DSP module revision 2 implemented
	Config3MSA  = 1 << 28 // SIMD architecture implemented
)

// Config5 register bits.
const (
	Config5SBRI  = 1 << 6  // SDBBP reserved-instruction trap outside kernel
	Config5FRE   = 1 << 8  // FR=0 emulation enable
	Config5MSAEn = 1 << 27 // SIMD architecture enable
)

// PageGrain register bits.
const (
	PageGrainELPA = 1 << 29 // enable large physical addressing
	PageGrainXIE  = 1 << 30 // execute-inhibit bits implemented in TLB
	PageGrainRIE  = 1 << 31 // read-inhibit bits implemented in TLB
)

// Debug register bits.
const (
	DebugDM = 1 << 30 // debug mode
)

// TCStatus register bits.
const (
	TCStatusIXMT = 1 << 10 // interrupt exemption
	TCStatusA    = 1 << 13 // thread context activated
)

// TCHalt register bits.
const (
	TCHaltH = 1 << 0 // thread halted
)

// VPEConf0 register bits.
const (
	VPEConf0VPA = 1 << 0 // virtual processing element activated
	VPEConf0MVP = 1 << 1 // master virtual processor
)

// VPControl register bits.
const (
	VPControlDIS = 1 << 0 // disable other virtual processors
)

// MVPControl register bits.
const (
	MVPControlEVP = 1 << 0 // enable virtual processors
)

// ASID returns the current address-space identifier from EntryHi.
func (r *Registers) ASID() uint16 {
	return uint16(r.EntryHi & EntryHiASIDMask)
}

// DebugMode reports whether the CPU is in EJTAG debug mode.
func (r *Registers) DebugMode() bool {
	return r.Debug&DebugDM != 0
}

// K0 returns the kseg0 cacheability attribute from Config0.
func (r *Registers) K0() uint8 {
	return uint8(r.Config0 & Config0K0Mask)
}
