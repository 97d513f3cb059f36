package emu_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/mipsim/cp0"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/isa"
	"github.com/sarchlab/mipsim/mem"
	"github.com/sarchlab/mipsim/mmu"
)

func TestEmu(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Emu Suite")
}

// mapping builds a live dirty entry pairing two 4 KiB frames at vpn.
func mapping(vpn uint64, asid uint16, pfnEven, pfnOdd uint64) mmu.Entry {
	return mmu.Entry{
		VPN:  vpn,
		ASID: asid,
		Pages: [2]mmu.Subpage{
			{PFN: pfnEven, CCA: mem.CCACached, Valid: true, Dirty: true},
			{PFN: pfnOdd, CCA: mem.CCACached, Valid: true, Dirty: true},
		},
	}
}

var _ = Describe("CPU", func() {
	Describe("New", func() {
		It("should reject an invalid configuration", func() {
			cfg := isa.M34KConfig()
			cfg.TLBEntries = 0

			_, err := emu.New(cfg)
			Expect(err).To(HaveOccurred())
		})

		It("should fix the translation strategy from the variant", func() {
			bare, err := emu.New(isa.BareConfig())
			Expect(err).ToNot(HaveOccurred())
			Expect(bare.TLB).To(BeNil())

			fixed, err := emu.New(isa.M4KConfig())
			Expect(err).ToNot(HaveOccurred())
			Expect(fixed.TLB).To(BeNil())

			tlb, err := emu.New(isa.M34KConfig())
			Expect(err).ToNot(HaveOccurred())
			Expect(tlb.TLB).ToNot(BeNil())
			Expect(tlb.TLB.Capacity()).To(Equal(16))
		})

		It("should seed the derived state from the zeroed registers", func() {
			c, err := emu.New(isa.M34KConfig())
			Expect(err).ToNot(HaveOccurred())

			// Zero Status means kernel mode, 32-bit physical mask.
			Expect(c.Flags.Mode()).To(Equal(cp0.FlagKernel))
			Expect(c.PhysMask).To(Equal(uint64(1<<32 - 1)))
			Expect(c.MVP).ToNot(BeNil())
		})
	})

	Describe("UpdateFlags", func() {
		It("should track privilege transitions", func() {
			c, err := emu.New(isa.M34KConfig())
			Expect(err).ToNot(HaveOccurred())

			c.Regs.Status = 2<<cp0.StatusKSUShift | cp0.StatusIE
			c.UpdateFlags()
			Expect(c.Flags.Mode()).To(Equal(cp0.FlagUser))

			// Taking an exception forces kernel.
			c.Regs.Status |= cp0.StatusEXL
			c.UpdateFlags()
			Expect(c.Flags.Mode()).To(Equal(cp0.FlagKernel))
		})

		It("should widen the physical mask under extended addressing", func() {
			c, err := emu.New(isa.P5600Config())
			Expect(err).ToNot(HaveOccurred())
			Expect(c.PhysMask).To(Equal(uint64(1<<32 - 1)))

			c.Regs.Config3 = cp0.Config3LPA
			c.Regs.PageGrain = cp0.PageGrainELPA
			c.UpdateFlags()
			Expect(c.PhysMask).To(Equal(uint64(1<<40 - 1)))

			c.Regs.PageGrain = 0
			c.UpdateFlags()
			Expect(c.PhysMask).To(Equal(uint64(1<<32 - 1)))
		})
	})

	Describe("Translate", func() {
		var c *emu.CPU

		BeforeEach(func() {
			var err error
			c, err = emu.New(isa.M34KConfig())
			Expect(err).ToNot(HaveOccurred())
			c.Regs.EntryHi = 7 // ASID
			c.UpdateFlags()
		})

		It("should translate under the context's address space", func() {
			Expect(c.TLB.WriteIndexed(0, mapping(0x0040_0000, 7, 0x1000_0000, 0x1000_1000))).To(Succeed())

			result, err := c.Translate(0x0040_0123, mmu.AccessRead)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.PhysAddr).To(Equal(uint64(0x1000_0123)))

			// A foreign address space does not match.
			c.Regs.EntryHi = 9
			_, err = c.Translate(0x0040_0123, mmu.AccessRead)
			miss, ok := mmu.AsMiss(err)
			Expect(ok).To(BeTrue())
			Expect(miss.Kind).To(Equal(mmu.MissRefill))
		})

		It("should clip the physical address to the derived mask", func() {
			Expect(c.TLB.WriteIndexed(0, mapping(0x0040_0000, 7, 0x1_2345_6000, 0x1_2345_7000))).To(Succeed())

			result, err := c.Translate(0x0040_0040, mmu.AccessRead)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.PhysAddr).To(Equal(uint64(0x2345_6040)))
		})

		It("should pass misses through untouched", func() {
			_, err := c.Translate(0xDEAD_0000, mmu.AccessWrite)

			miss, ok := mmu.AsMiss(err)
			Expect(ok).To(BeTrue())
			Expect(miss.Kind).To(Equal(mmu.MissRefill))
			Expect(miss.VAddr).To(Equal(uint64(0xDEAD_0000)))
		})
	})

	Describe("FP synchronization", func() {
		It("should rebuild the scalar context from FCR31", func() {
			c, err := emu.New(isa.P5600Config())
			Expect(err).ToNot(HaveOccurred())

			c.Regs.FCR31 = 1 | 1<<24 // RM=toward-zero, FS
			c.SyncScalarFP()

			Expect(c.ScalarFP.Rounding.String()).To(Equal("toward-zero"))
			Expect(c.ScalarFP.FlushToZero).To(BeTrue())
			Expect(c.ScalarFP.FlushInputsToZero).To(BeFalse())
			Expect(c.ScalarFP.SNaNBitIsOne).To(BeTrue())
		})

		It("should rebuild the SIMD context from MSACSR", func() {
			c, err := emu.New(isa.I6400Config())
			Expect(err).ToNot(HaveOccurred())

			c.Regs.MSACSR = 3 | 1<<24 // RM=toward-negative, FS
			c.SyncSIMDFP()

			Expect(c.SIMDFP.Rounding.String()).To(Equal("toward-negative"))
			Expect(c.SIMDFP.FlushToZero).To(BeTrue())
			Expect(c.SIMDFP.FlushInputsToZero).To(BeTrue())
			Expect(c.SIMDFP.SNaNBitIsOne).To(BeFalse())
		})
	})

	Describe("interrupt gating", func() {
		It("should combine enable and pending state", func() {
			c, err := emu.New(isa.M34KConfig())
			Expect(err).ToNot(HaveOccurred())

			c.Regs.Status = cp0.StatusIE | 0b100<<cp0.StatusIMShift
			c.Regs.Cause = 0b100 << cp0.CauseIPShift
			Expect(c.InterruptsEnabled()).To(BeTrue())
			Expect(c.InterruptsPending()).To(BeTrue())
			Expect(c.InterruptReady()).To(BeTrue())

			// The same lines against an external controller threshold.
			c.Regs.Config3 = cp0.Config3VEIC
			Expect(c.InterruptsPending()).To(BeFalse())
			Expect(c.InterruptReady()).To(BeFalse())
		})
	})

	Describe("multithreading gates", func() {
		It("should share the MVP block between siblings", func() {
			shared := &cp0.MVP{Control: cp0.MVPControlEVP}

			a, err := emu.New(isa.M34KConfig(), emu.WithMVP(shared))
			Expect(err).ToNot(HaveOccurred())
			b, err := emu.New(isa.M34KConfig(), emu.WithMVP(shared))
			Expect(err).ToNot(HaveOccurred())

			for _, c := range []*emu.CPU{a, b} {
				c.Regs.VPEConf0 = cp0.VPEConf0VPA
				c.Regs.ActiveTC.TCStatus = cp0.TCStatusA
			}

			Expect(a.ThreadContextActive()).To(BeTrue())
			Expect(b.ThreadContextActive()).To(BeTrue())

			// Disabling virtual processors on the core stops both.
			shared.Control = 0
			Expect(a.ThreadContextActive()).To(BeFalse())
			Expect(b.ThreadContextActive()).To(BeFalse())
		})

		It("should arbitrate virtual-processor exclusivity", func() {
			a, err := emu.New(isa.I6400Config())
			Expect(err).ToNot(HaveOccurred())
			b, err := emu.New(isa.I6400Config())
			Expect(err).ToNot(HaveOccurred())
			siblings := []*emu.CPU{a, b}

			Expect(a.VirtualProcessorActive(siblings)).To(BeTrue())
			Expect(b.VirtualProcessorActive(siblings)).To(BeTrue())

			a.Regs.VPControl = cp0.VPControlDIS
			Expect(a.VirtualProcessorActive(siblings)).To(BeTrue())
			Expect(b.VirtualProcessorActive(siblings)).To(BeFalse())
		})
	})

	Describe("memory access", func() {
		It("should fail without a memory system", func() {
			c, err := emu.New(isa.BareConfig())
			Expect(err).ToNot(HaveOccurred())

			_, err = c.Load(0x1000, 4)
			Expect(err).To(HaveOccurred())
			Expect(c.Store(0x1000, 4, 1)).ToNot(Succeed())
			_, err = c.Fetch(0x1000)
			Expect(err).To(HaveOccurred())
		})

		It("should round-trip through the identity mapping", func() {
			h, err := mem.NewHierarchy(mem.DefaultConfig())
			Expect(err).ToNot(HaveOccurred())
			c, err := emu.New(isa.BareConfig(), emu.WithMemory(h))
			Expect(err).ToNot(HaveOccurred())

			Expect(c.Store(0x2000, 8, 0xFEEDFACECAFEBEEF)).To(Succeed())

			value, err := c.Load(0x2000, 8)
			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(Equal(uint64(0xFEEDFACECAFEBEEF)))
		})

		It("should fetch through the fixed windows", func() {
			h, err := mem.NewHierarchy(mem.DefaultConfig())
			Expect(err).ToNot(HaveOccurred())
			c, err := emu.New(isa.M4KConfig(), emu.WithMemory(h))
			Expect(err).ToNot(HaveOccurred())

			// kseg0 folds onto low physical memory.
			h.Memory().Write32(0x0000_0100, 0x24020001)

			word, err := c.Fetch(0x8000_0100)
			Expect(err).ToNot(HaveOccurred())
			Expect(word).To(Equal(uint32(0x24020001)))
		})

		It("should pass translation misses through to the caller", func() {
			h, err := mem.NewHierarchy(mem.DefaultConfig())
			Expect(err).ToNot(HaveOccurred())
			c, err := emu.New(isa.M34KConfig(), emu.WithMemory(h))
			Expect(err).ToNot(HaveOccurred())
			c.Regs.EntryHi = 3
			c.UpdateFlags()

			_, err = c.Load(0x0040_0000, 4)
			miss, ok := mmu.AsMiss(err)
			Expect(ok).To(BeTrue())
			Expect(miss.Kind).To(Equal(mmu.MissRefill))

			// A clean mapping rejects the store with a modified miss.
			e := mapping(0x0040_0000, 3, 0x1000_0000, 0x1000_1000)
			e.Pages[0].Dirty = false
			Expect(c.TLB.WriteIndexed(0, e)).To(Succeed())

			err = c.Store(0x0040_0000, 4, 1)
			miss, ok = mmu.AsMiss(err)
			Expect(ok).To(BeTrue())
			Expect(miss.Kind).To(Equal(mmu.MissModified))
		})

		It("should route by the mapping's cacheability attribute", func() {
			h, err := mem.NewHierarchy(mem.DefaultConfig())
			Expect(err).ToNot(HaveOccurred())
			c, err := emu.New(isa.M34KConfig(), emu.WithMemory(h))
			Expect(err).ToNot(HaveOccurred())
			c.Regs.EntryHi = 3
			c.UpdateFlags()

			e := mapping(0x0040_0000, 3, 0x1000_0000, 0x1000_1000)
			e.Pages[0].CCA = mem.CCAUncached
			Expect(c.TLB.WriteIndexed(0, e)).To(Succeed())

			Expect(c.Store(0x0040_0000, 8, 0x1234)).To(Succeed())
			Expect(h.CacheStats()).To(Equal(mem.Statistics{}))
			Expect(h.UncachedWrites()).To(Equal(uint64(1)))

			// The odd subpage stays cached.
			Expect(c.Store(0x0040_1000, 8, 0x5678)).To(Succeed())
			Expect(h.CacheStats().Writes).To(Equal(uint64(1)))
		})
	})

	Describe("Reset", func() {
		It("should clear registers, derived state, and the TLB", func() {
			c, err := emu.New(isa.M34KConfig())
			Expect(err).ToNot(HaveOccurred())

			c.Regs.Status = 2 << cp0.StatusKSUShift
			c.Regs.EntryHi = 5
			c.UpdateFlags()
			Expect(c.TLB.WriteIndexed(0, mapping(0x0040_0000, 5, 0x1000_0000, 0x1000_1000))).To(Succeed())

			c.Reset()

			Expect(c.Regs).To(Equal(cp0.Registers{}))
			Expect(c.Flags.Mode()).To(Equal(cp0.FlagKernel))
			Expect(c.TLB.Live()).To(Equal(0))
		})
	})

	Describe("parallel contexts", func() {
		It("should stay independent and deterministic", func() {
			reference, err := contextChecksum()
			Expect(err).ToNot(HaveOccurred())

			const workers = 8
			sums := make([]uint64, workers)

			var group errgroup.Group
			for i := 0; i < workers; i++ {
				i := i
				group.Go(func() error {
					sum, err := contextChecksum()
					sums[i] = sum
					return err
				})
			}
			Expect(group.Wait()).To(Succeed())

			for i, sum := range sums {
				Expect(sum).To(Equal(reference), "context %d diverged", i)
			}
		})
	})
})

// contextChecksum drives one fully private CPU context through a fixed
// refill-store-load workload and folds every observable outcome into one
// value. Identical runs must produce identical checksums.
func contextChecksum() (uint64, error) {
	h, err := mem.NewHierarchy(mem.DefaultConfig())
	if err != nil {
		return 0, err
	}
	c, err := emu.New(isa.M34KConfig(), emu.WithMemory(h))
	if err != nil {
		return 0, err
	}

	c.Regs.EntryHi = 7
	c.Regs.Status = cp0.StatusIE
	c.UpdateFlags()
	c.TLB.SetSeed(42)

	var sum uint64
	for i := 0; i < 200; i++ {
		vpn := uint64(i%32) << 13
		pfn := uint64(0x0010_0000) + uint64(i)<<13

		index := c.TLB.WriteRandom(mapping(vpn, 7, pfn, pfn+0x1000))
		sum = sum*31 + uint64(index)

		if err := c.Store(vpn+8, 8, uint64(i)*0x9E3779B9); err != nil {
			return 0, err
		}
		value, err := c.Load(vpn+8, 8)
		if err != nil {
			return 0, err
		}
		sum = sum*31 + value
	}

	stats := h.CacheStats()
	sum = sum*31 + stats.Hits*7 + stats.Misses
	return sum, nil
}
