// Package mem models the physical side of a translated access: sparse
// paged memory, a synchronous set-associative cache built on akita's
// directory components, and the cacheability-attribute routing between
// them.
package mem

// pageBytes is the allocation granule of the sparse memory. It is a host
// modeling choice, unrelated to the guest's TLB page sizes.
const pageBytes = 1 << 12

// Memory is sparse paged physical memory. Pages are allocated on first
// write and reads of unwritten memory return zeros. Multi-byte accessors
// are little-endian. Memory satisfies BackingStore, so it can sit
// directly behind a Cache.
type Memory struct {
	pages map[uint64][]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64][]byte)}
}

// page returns the page containing addr, allocating it when allocate is
// set. A nil return means the page has never been written.
func (m *Memory) page(addr uint64, allocate bool) []byte {
	base := addr &^ uint64(pageBytes-1)
	p, ok := m.pages[base]
	if !ok && allocate {
		p = make([]byte, pageBytes)
		m.pages[base] = p
	}
	return p
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint64) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&(pageBytes-1)]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint64, value byte) {
	m.page(addr, true)[addr&(pageBytes-1)] = value
}

// readLE composes size bytes starting at addr, least significant first.
func (m *Memory) readLE(addr uint64, size int) uint64 {
	var value uint64
	for i := 0; i < size; i++ {
		value |= uint64(m.Read8(addr+uint64(i))) << (i * 8)
	}
	return value
}

// writeLE spreads the low size bytes of value from addr upward.
func (m *Memory) writeLE(addr uint64, size int, value uint64) {
	for i := 0; i < size; i++ {
		m.Write8(addr+uint64(i), byte(value>>(i*8)))
	}
}

// Read16 reads a little-endian 16-bit value.
func (m *Memory) Read16(addr uint64) uint16 {
	return uint16(m.readLE(addr, 2))
}

// Read32 reads a little-endian 32-bit value.
func (m *Memory) Read32(addr uint64) uint32 {
	return uint32(m.readLE(addr, 4))
}

// Read64 reads a little-endian 64-bit value.
func (m *Memory) Read64(addr uint64) uint64 {
	return m.readLE(addr, 8)
}

// Write16 writes a little-endian 16-bit value.
func (m *Memory) Write16(addr uint64, value uint16) {
	m.writeLE(addr, 2, uint64(value))
}

// Write32 writes a little-endian 32-bit value.
func (m *Memory) Write32(addr uint64, value uint32) {
	m.writeLE(addr, 4, uint64(value))
}

// Write64 writes a little-endian 64-bit value.
func (m *Memory) Write64(addr uint64, value uint64) {
	m.writeLE(addr, 8, value)
}

// Read copies size bytes starting at addr into a fresh slice. It doubles
// as the cache's backing-store fetch.
func (m *Memory) Read(addr uint64, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = m.Read8(addr + uint64(i))
	}
	return data
}

// Write stores data starting at addr. It doubles as the cache's
// backing-store write-back.
func (m *Memory) Write(addr uint64, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint64(i), b)
	}
}

// PageCount returns the number of pages written so far.
func (m *Memory) PageCount() int {
	return len(m.pages)
}
