package mmu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/mmu"
)

var _ = Describe("NoneMMU", func() {
	var m *mmu.NoneMMU

	BeforeEach(func() {
		m = &mmu.NoneMMU{CCA: 3}
	})

	It("should map every address to itself with full permissions", func() {
		for _, vaddr := range []uint64{0, 0x1000, 0x8000_1234, 0xFFFF_FFFF_FFFF_0000} {
			for _, access := range []mmu.Access{mmu.AccessRead, mmu.AccessWrite, mmu.AccessExecute} {
				res, err := m.Map(vaddr, access, 0)
				Expect(err).ToNot(HaveOccurred())
				Expect(res.PhysAddr).To(Equal(vaddr))
				Expect(res.Perms).To(Equal(mmu.PermRead | mmu.PermWrite | mmu.PermExecute))
				Expect(res.CCA).To(Equal(uint8(3)))
			}
		}
	})
})

var _ = Describe("FixedMMU", func() {
	var m *mmu.FixedMMU

	BeforeEach(func() {
		m = mmu.NewFixedMMU(mmu.DefaultFixedWindows())
	})

	It("should offset-map the low segment into high physical memory", func() {
		res, err := m.Map(0x0000_1000, mmu.AccessRead, 5)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.PhysAddr).To(Equal(uint64(0x4000_1000)))
		Expect(res.CCA).To(Equal(uint8(3)))
	})

	It("should fold both unmapped segments onto low physical memory", func() {
		cached, err := m.Map(0x8000_1000, mmu.AccessRead, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(cached.PhysAddr).To(Equal(uint64(0x0000_1000)))
		Expect(cached.CCA).To(Equal(uint8(3)))

		uncached, err := m.Map(0xA000_1000, mmu.AccessRead, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(uncached.PhysAddr).To(Equal(uint64(0x0000_1000)))
		Expect(uncached.CCA).To(Equal(uint8(2)))
	})

	It("should pass the top segment through unchanged", func() {
		res, err := m.Map(0xC000_0040, mmu.AccessExecute, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.PhysAddr).To(Equal(uint64(0xC000_0040)))
	})

	It("should ignore the address space", func() {
		a, err := m.Map(0x0000_1000, mmu.AccessRead, 1)
		Expect(err).ToNot(HaveOccurred())
		b, err := m.Map(0x0000_1000, mmu.AccessRead, 200)
		Expect(err).ToNot(HaveOccurred())
		Expect(a).To(Equal(b))
	})

	It("should miss as a refill outside every window", func() {
		m = mmu.NewFixedMMU([]mmu.Window{
			{Base: 0x1000, Size: 0x1000, PhysBase: 0x9000, Perms: mmu.PermRead, CCA: 3},
		})

		_, err := m.Map(0x3000, mmu.AccessRead, 0)
		miss, ok := mmu.AsMiss(err)
		Expect(ok).To(BeTrue())
		Expect(miss.Kind).To(Equal(mmu.MissRefill))
		Expect(miss.VAddr).To(Equal(uint64(0x3000)))
	})

	It("should deny an access kind the window does not grant", func() {
		m = mmu.NewFixedMMU([]mmu.Window{
			{Base: 0x1000, Size: 0x1000, PhysBase: 0x9000, Perms: mmu.PermRead | mmu.PermWrite, CCA: 3},
		})

		_, err := m.Map(0x1800, mmu.AccessExecute, 0)
		miss, ok := mmu.AsMiss(err)
		Expect(ok).To(BeTrue())
		Expect(miss.Kind).To(Equal(mmu.MissAccessDenied))

		res, err := m.Map(0x1800, mmu.AccessWrite, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.PhysAddr).To(Equal(uint64(0x9800)))
	})

	It("should let an earlier window shadow a later one", func() {
		m = mmu.NewFixedMMU([]mmu.Window{
			{Base: 0x1000, Size: 0x1000, PhysBase: 0x9000, Perms: mmu.PermRead, CCA: 2},
			{Base: 0x0000, Size: 0x8000, PhysBase: 0x0000, Perms: mmu.PermRead, CCA: 3},
		})

		res, err := m.Map(0x1400, mmu.AccessRead, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.PhysAddr).To(Equal(uint64(0x9400)))
		Expect(res.CCA).To(Equal(uint8(2)))
	})
})
