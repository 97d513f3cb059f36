package fpu_test

import (
	"testing"

	"github.com/sarchlab/mipsim/fpu"
)

func TestSyncScalarRounding(t *testing.T) {
	tests := []struct {
		rm   uint32
		want fpu.RoundingMode
	}{
		{0, fpu.RoundNearestEven},
		{1, fpu.RoundTowardZero},
		{2, fpu.RoundTowardPositive},
		{3, fpu.RoundTowardNegative},
	}

	for _, tt := range tests {
		var ctx fpu.Context
		fpu.SyncScalar(&ctx, tt.rm)
		if ctx.Rounding != tt.want {
			t.Errorf("RM=%d: Rounding = %v, want %v", tt.rm, ctx.Rounding, tt.want)
		}
	}
}

func TestSyncScalarFlushAndNaN(t *testing.T) {
	tests := []struct {
		name       string
		fcr31      uint32
		flush      bool
		snanBitOne bool
	}{
		{"all clear", 0, false, true},
		{"FS set", fpu.FCR31FS, true, true},
		{"NAN2008 set", fpu.FCR31NAN2008, false, false},
		{"FS and NAN2008", fpu.FCR31FS | fpu.FCR31NAN2008, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Start from a dirtied context: sync must rebuild every field.
			ctx := fpu.Context{
				Rounding:          fpu.RoundTowardNegative,
				FlushToZero:       !tt.flush,
				FlushInputsToZero: true,
				SNaNBitIsOne:      !tt.snanBitOne,
			}
			fpu.SyncScalar(&ctx, tt.fcr31)

			if ctx.FlushToZero != tt.flush {
				t.Errorf("FlushToZero = %v, want %v", ctx.FlushToZero, tt.flush)
			}
			if ctx.FlushInputsToZero {
				t.Error("scalar context must never flush inputs")
			}
			if ctx.SNaNBitIsOne != tt.snanBitOne {
				t.Errorf("SNaNBitIsOne = %v, want %v", ctx.SNaNBitIsOne, tt.snanBitOne)
			}
		})
	}
}

func TestSyncSIMD(t *testing.T) {
	var ctx fpu.Context

	fpu.SyncSIMD(&ctx, 2|fpu.MSACSRFS)
	if ctx.Rounding != fpu.RoundTowardPositive {
		t.Errorf("Rounding = %v, want %v", ctx.Rounding, fpu.RoundTowardPositive)
	}
	if !ctx.FlushToZero || !ctx.FlushInputsToZero {
		t.Error("FS must flush both results and inputs on the SIMD unit")
	}
	if ctx.SNaNBitIsOne {
		t.Error("SIMD context must always use the 2008 NaN encoding")
	}

	fpu.SyncSIMD(&ctx, 0)
	if ctx.FlushToZero || ctx.FlushInputsToZero {
		t.Error("clearing FS must clear both flush modes")
	}
}
