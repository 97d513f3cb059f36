// Package emu aggregates one emulated CPU context: the control-register
// block, the derived-mode flags cached from it, the variant's translation
// strategy, the floating-point control contexts, and an optional memory
// system. The execution layer drives a context through UpdateFlags,
// Translate, and the gate predicates; everything here is synchronous.
package emu

import (
	"fmt"

	"github.com/sarchlab/mipsim/cp0"
	"github.com/sarchlab/mipsim/fpu"
	"github.com/sarchlab/mipsim/isa"
	"github.com/sarchlab/mipsim/mem"
	"github.com/sarchlab/mipsim/mmu"
)

// CPU is one emulated hardware-thread context. A context is owned by the
// single goroutine driving it; only the MVP block and the memory system
// may be shared between contexts, synchronized by the caller.
type CPU struct {
	config *isa.Config

	// Regs is the architected control-register block. The execution
	// layer populates it and calls UpdateFlags before any
	// mode-dependent decision.
	Regs cp0.Registers

	// MVP is the multi-VPE control block, shared by sibling contexts of
	// one core (WithMVP).
	MVP *cp0.MVP

	// Flags is the derived-mode word, valid as of the last UpdateFlags.
	Flags cp0.Flags

	// PhysMask is the physical-address mask derived with Flags; every
	// translation result is clipped to it.
	PhysMask uint64

	// TLB is the software-refilled translation store. It is nil unless
	// the variant uses the r4000 strategy; maintenance operations go
	// through it directly.
	TLB *mmu.TLB

	mapper mmu.Mapper

	// ScalarFP and SIMDFP are the floating-point control contexts,
	// rebuilt by SyncScalarFP and SyncSIMDFP.
	ScalarFP fpu.Context
	SIMDFP   fpu.Context

	memory *mem.Hierarchy
}

// Option configures a CPU at construction.
type Option func(*CPU)

// WithMVP shares an existing multi-VPE block with this context. Sibling
// contexts of one core must all receive the same block.
func WithMVP(mvp *cp0.MVP) Option {
	return func(c *CPU) {
		c.MVP = mvp
	}
}

// WithMemory attaches a memory system. Load, Store, and Fetch fail
// without one.
func WithMemory(h *mem.Hierarchy) Option {
	return func(c *CPU) {
		c.memory = h
	}
}

// New builds a CPU context for the given variant. The translation
// strategy is fixed from the configuration. Construction is not an
// architectural reset: the derived state is seeded from the zeroed
// registers, and callers populate Regs and call UpdateFlags.
func New(cfg *isa.Config, opts ...Option) (*CPU, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid CPU config: %w", err)
	}

	c := &CPU{config: cfg}

	switch cfg.MMU {
	case isa.MMUNone:
		c.mapper = &mmu.NoneMMU{CCA: mem.CCACached}
	case isa.MMUFixed:
		c.mapper = mmu.NewFixedMMU(mmu.DefaultFixedWindows())
	case isa.MMUR4000:
		c.TLB = mmu.NewTLB(cfg)
		c.mapper = c.TLB
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.MVP == nil {
		c.MVP = &cp0.MVP{}
	}

	c.UpdateFlags()
	c.SyncScalarFP()
	c.SyncSIMDFP()

	return c, nil
}

// Config returns the variant configuration.
func (c *CPU) Config() *isa.Config {
	return c.config
}

// Memory returns the attached memory system, or nil.
func (c *CPU) Memory() *mem.Hierarchy {
	return c.memory
}

// Reset clears the architected register state, the derived state, and the
// TLB. The shared MVP block and the memory system are left alone.
func (c *CPU) Reset() {
	c.Regs = cp0.Registers{}
	if c.TLB != nil {
		c.TLB.Flush()
	}
	c.UpdateFlags()
	c.SyncScalarFP()
	c.SyncSIMDFP()
}

// UpdateFlags recomputes the derived-mode word and the physical-address
// mask. The execution layer calls it after every write to a register the
// derivation depends on.
func (c *CPU) UpdateFlags() {
	c.Flags = cp0.Derive(&c.Regs, c.config.ISA)
	c.PhysMask = cp0.PhysMask(c.Flags, c.config)
}

// SyncScalarFP rebuilds the scalar floating-point context from FCR31.
func (c *CPU) SyncScalarFP() {
	fpu.SyncScalar(&c.ScalarFP, c.Regs.FCR31)
}

// SyncSIMDFP rebuilds the SIMD floating-point context from MSACSR.
func (c *CPU) SyncSIMDFP() {
	fpu.SyncSIMD(&c.SIMDFP, c.Regs.MSACSR)
}

// Translate maps a virtual address for the given access kind under the
// context's current address space, clipping the physical result to the
// derived mask. Misses pass through for the caller's exception dispatch.
func (c *CPU) Translate(vaddr uint64, access mmu.Access) (mmu.Result, error) {
	result, err := c.mapper.Map(vaddr, access, c.Regs.ASID())
	if err != nil {
		return mmu.Result{}, err
	}
	result.PhysAddr &= c.PhysMask
	return result, nil
}

// InterruptsEnabled reports whether this context accepts interrupts.
func (c *CPU) InterruptsEnabled() bool {
	return cp0.InterruptsEnabled(&c.Regs)
}

// InterruptsPending reports whether an unmasked interrupt is pending.
func (c *CPU) InterruptsPending() bool {
	return cp0.InterruptsPending(&c.Regs)
}

// InterruptReady combines InterruptsEnabled and InterruptsPending.
func (c *CPU) InterruptReady() bool {
	return cp0.InterruptReady(&c.Regs)
}

// ThreadContextActive reports whether the context's active thread may
// run.
func (c *CPU) ThreadContextActive() bool {
	return cp0.ThreadContextActive(&c.Regs, c.MVP)
}

// VirtualProcessorActive reports whether this context's virtual processor
// may run alongside its siblings.
func (c *CPU) VirtualProcessorActive(siblings []*CPU) bool {
	regs := make([]*cp0.Registers, 0, len(siblings))
	for _, sibling := range siblings {
		regs = append(regs, &sibling.Regs)
	}
	return cp0.VirtualProcessorActive(&c.Regs, regs)
}

// Load translates vaddr and reads size bytes from the memory system under
// the mapping's cacheability attribute.
func (c *CPU) Load(vaddr uint64, size int) (uint64, error) {
	if c.memory == nil {
		return 0, fmt.Errorf("no memory system attached")
	}

	result, err := c.Translate(vaddr, mmu.AccessRead)
	if err != nil {
		return 0, err
	}

	value, _ := c.memory.Read(result.PhysAddr, size, result.CCA)
	return value, nil
}

// Store translates vaddr and writes the low size bytes of value to the
// memory system under the mapping's cacheability attribute.
func (c *CPU) Store(vaddr uint64, size int, value uint64) error {
	if c.memory == nil {
		return fmt.Errorf("no memory system attached")
	}

	result, err := c.Translate(vaddr, mmu.AccessWrite)
	if err != nil {
		return err
	}

	c.memory.Write(result.PhysAddr, size, value, result.CCA)
	return nil
}

// Fetch translates vaddr for execution and reads one instruction word.
func (c *CPU) Fetch(vaddr uint64) (uint32, error) {
	if c.memory == nil {
		return 0, fmt.Errorf("no memory system attached")
	}

	result, err := c.Translate(vaddr, mmu.AccessExecute)
	if err != nil {
		return 0, err
	}

	value, _ := c.memory.Read(result.PhysAddr, 4, result.CCA)
	return uint32(value), nil
}
