package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/mem"
)

var _ = Describe("Memory", func() {
	var m *mem.Memory

	BeforeEach(func() {
		m = mem.NewMemory()
	})

	It("should read zeros from unwritten memory without allocating", func() {
		Expect(m.Read8(0x0)).To(Equal(byte(0)))
		Expect(m.Read64(0xFFFF_FFFF_0000)).To(Equal(uint64(0)))
		Expect(m.PageCount()).To(Equal(0))
	})

	It("should store multi-byte values little-endian", func() {
		m.Write32(0x1000, 0x11223344)

		Expect(m.Read8(0x1000)).To(Equal(byte(0x44)))
		Expect(m.Read8(0x1001)).To(Equal(byte(0x33)))
		Expect(m.Read8(0x1002)).To(Equal(byte(0x22)))
		Expect(m.Read8(0x1003)).To(Equal(byte(0x11)))
		Expect(m.Read16(0x1002)).To(Equal(uint16(0x1122)))
	})

	It("should compose wide reads from narrow writes", func() {
		m.Write32(0x2000, 0xDDCCBBAA)
		m.Write32(0x2004, 0x44332211)

		Expect(m.Read64(0x2000)).To(Equal(uint64(0x44332211_DDCCBBAA)))
	})

	It("should allocate one page per written region", func() {
		m.Write8(0x0000, 1)
		m.Write8(0x0800, 2) // same page
		m.Write8(0x1000, 3) // next page
		Expect(m.PageCount()).To(Equal(2))
	})

	It("should handle accesses spanning a page boundary", func() {
		m.Write64(0x1FFC, 0x8877665544332211)

		Expect(m.Read32(0x1FFC)).To(Equal(uint32(0x44332211)))
		Expect(m.Read32(0x2000)).To(Equal(uint32(0x88776655)))
		Expect(m.Read64(0x1FFC)).To(Equal(uint64(0x8877665544332211)))
		Expect(m.PageCount()).To(Equal(2))
	})

	It("should round-trip block transfers", func() {
		data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		m.Write(0x3FFA, data)

		Expect(m.Read(0x3FFA, len(data))).To(Equal(data))
		Expect(m.Read8(0x4003)).To(Equal(byte(10)))
	})
})
