// Package fpu models MIPS floating-point control state: the layouts of
// the FCR0/FCR31/MSACSR control words and the synchronization of rounding
// and flush modes into scalar and SIMD execution contexts. The arithmetic
// itself is performed elsewhere; this package only keeps the mode state
// the arithmetic reads.
package fpu

// RoundingMode is an IEEE 754 rounding mode.
type RoundingMode uint8

// IEEE rounding modes.
const (
	RoundNearestEven RoundingMode = iota
	RoundTowardZero
	RoundTowardPositive
	RoundTowardNegative
)

// String returns the name used in reports.
func (m RoundingMode) String() string {
	switch m {
	case RoundNearestEven:
		return "nearest-even"
	case RoundTowardZero:
		return "toward-zero"
	case RoundTowardPositive:
		return "toward-positive"
	case RoundTowardNegative:
		return "toward-negative"
	default:
		return "unknown"
	}
}

// roundingModes maps the two-bit RM field of FCR31 and MSACSR to IEEE
// rounding modes.
var roundingModes = [4]RoundingMode{
	RoundNearestEven,
	RoundTowardZero,
	RoundTowardPositive,
	RoundTowardNegative,
}

// Context holds the mode state of one floating-point execution context.
// A CPU carries two: one for the scalar FPU, one for the SIMD unit.
type Context struct {
	// Rounding is the active IEEE rounding mode.
	Rounding RoundingMode

	// FlushToZero flushes tiny results to zero.
	FlushToZero bool

	// FlushInputsToZero flushes subnormal operands to zero before use.
	FlushInputsToZero bool

	// SNaNBitIsOne selects the legacy (pre-2008) NaN encoding, in which
	// a set quiet bit marks a signaling NaN.
	SNaNBitIsOne bool
}

// FCR0 (floating-point implementation register) bits.
const (
	FCR0F64  = 1 << 22 // 64-bit FPU register file implemented
	FCR0FREP = 1 << 29 // FR=0 register emulation implemented
)

// FCR31 (floating-point control/status register) bits.
const (
	FCR31RMMask  = 0x3     // rounding-mode field
	FCR31NAN2008 = 1 << 18 // 2008 NaN encoding
	FCR31ABS2008 = 1 << 19 // 2008 ABS/NEG behavior
	FCR31FS      = 1 << 24 // flush subnormals
)

// MSACSR (SIMD control/status register) bits.
const (
	MSACSRRMMask = 0x3     // rounding-mode field
	MSACSRFS     = 1 << 24 // flush subnormals
)

// SyncScalar rebuilds a scalar context's mode state from FCR31. The
// scalar unit flushes tiny results when FS is set but never flushes
// inputs; the NaN encoding follows the NAN2008 bit.
func SyncScalar(ctx *Context, fcr31 uint32) {
	ctx.Rounding = roundingModes[fcr31&FCR31RMMask]
	ctx.FlushToZero = fcr31&FCR31FS != 0
	ctx.FlushInputsToZero = false
	ctx.SNaNBitIsOne = fcr31&FCR31NAN2008 == 0
}

// SyncSIMD rebuilds a SIMD context's mode state from MSACSR. The SIMD
// unit flushes both operands and results when FS is set and always uses
// the 2008 NaN encoding.
func SyncSIMD(ctx *Context, msacsr uint32) {
	ctx.Rounding = roundingModes[msacsr&MSACSRRMMask]
	ctx.FlushToZero = msacsr&MSACSRFS != 0
	ctx.FlushInputsToZero = ctx.FlushToZero
	ctx.SNaNBitIsOne = false
}
