package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/mem"
)

var _ = Describe("Hierarchy", func() {
	var h *mem.Hierarchy

	BeforeEach(func() {
		var err error
		h, err = mem.NewHierarchy(mem.DefaultConfig())
		Expect(err).ToNot(HaveOccurred())
	})

	It("should reject an unrealizable configuration", func() {
		config := mem.DefaultConfig()
		config.L1.BlockSize = 24

		_, err := mem.NewHierarchy(config)
		Expect(err).To(HaveOccurred())
	})

	Describe("uncached accesses", func() {
		It("should bypass the L1 entirely", func() {
			latency := h.Write(0x1000, 8, 0xDEADBEEF, mem.CCAUncached)
			Expect(latency).To(Equal(uint64(30)))

			value, latency := h.Read(0x1000, 8, mem.CCAUncached)
			Expect(value).To(Equal(uint64(0xDEADBEEF)))
			Expect(latency).To(Equal(uint64(30)))

			Expect(h.CacheStats()).To(Equal(mem.Statistics{}))
			Expect(h.UncachedReads()).To(Equal(uint64(1)))
			Expect(h.UncachedWrites()).To(Equal(uint64(1)))
		})
	})

	Describe("cached accesses", func() {
		It("should hit after a fill", func() {
			h.Write(0x1000, 8, 0xCAFEBABE, mem.CCACached)

			value, latency := h.Read(0x1000, 8, mem.CCACached)
			Expect(value).To(Equal(uint64(0xCAFEBABE)))
			Expect(latency).To(Equal(h.L1().Config().HitLatency))

			stats := h.CacheStats()
			Expect(stats.Writes).To(Equal(uint64(1)))
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
		})

		It("should expose write-back data to uncached readers only after a flush", func() {
			h.Write(0x1000, 8, 0x12345678, mem.CCACached)

			stale, _ := h.Read(0x1000, 8, mem.CCAUncached)
			Expect(stale).To(Equal(uint64(0)))

			h.L1().Flush()

			fresh, _ := h.Read(0x1000, 8, mem.CCAUncached)
			Expect(fresh).To(Equal(uint64(0x12345678)))
		})
	})

	Describe("CCAIsCached", func() {
		It("should fold every attribute onto its class", func() {
			for _, cca := range []uint8{2, 7} {
				Expect(mem.CCAIsCached(cca)).To(BeFalse(), "cca %d", cca)
			}
			for _, cca := range []uint8{0, 1, 3, 4, 5, 6} {
				Expect(mem.CCAIsCached(cca)).To(BeTrue(), "cca %d", cca)
			}
			// High bits beyond the field are ignored.
			Expect(mem.CCAIsCached(8 + 2)).To(BeFalse())
			Expect(mem.CCAIsCached(8 + 3)).To(BeTrue())
		})
	})
})
