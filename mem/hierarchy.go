package mem

import "fmt"

// Cacheability and coherency attributes. The model distinguishes two
// classes; the remaining architectural encodings fold onto them through
// CCAIsCached.
const (
	// CCAUncached is the uncached attribute.
	CCAUncached uint8 = 2
	// CCACached is the cacheable, noncoherent attribute.
	CCACached uint8 = 3
)

// CCAIsCached reports whether a cacheability attribute routes through the
// cache. Attributes 2 and 7 form the uncached class; everything else
// behaves as cached.
func CCAIsCached(cca uint8) bool {
	switch cca & 7 {
	case CCAUncached, 7:
		return false
	default:
		return true
	}
}

// Hierarchy routes physical accesses by cacheability attribute: the
// cached class goes through the L1 model, the uncached class straight to
// memory at a fixed cost. Mixing attributes over one line is left to the
// guest, as on hardware.
type Hierarchy struct {
	config Config
	memory *Memory
	l1     *Cache

	uncachedReads  uint64
	uncachedWrites uint64
}

// NewHierarchy creates a memory system from the given configuration.
func NewHierarchy(config *Config) (*Hierarchy, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid memory config: %w", err)
	}

	memory := NewMemory()
	return &Hierarchy{
		config: *config,
		memory: memory,
		l1:     NewCache(config.L1, memory),
	}, nil
}

// Memory returns the flat physical memory behind the cache.
func (h *Hierarchy) Memory() *Memory {
	return h.memory
}

// L1 returns the cache model.
func (h *Hierarchy) L1() *Cache {
	return h.l1
}

// Read reads size bytes at the physical address under the given
// attribute. It returns the little-endian value and the modeled latency.
func (h *Hierarchy) Read(addr uint64, size int, cca uint8) (uint64, uint64) {
	if !CCAIsCached(cca) {
		h.uncachedReads++
		return h.memory.readLE(addr, size), h.config.MemLatency
	}

	result := h.l1.Read(addr, size)
	return result.Data, result.Latency
}

// Write writes the low size bytes of value at the physical address under
// the given attribute. It returns the modeled latency.
func (h *Hierarchy) Write(addr uint64, size int, value uint64, cca uint8) uint64 {
	if !CCAIsCached(cca) {
		h.uncachedWrites++
		h.memory.writeLE(addr, size, value)
		return h.config.MemLatency
	}

	return h.l1.Write(addr, size, value).Latency
}

// CacheStats returns the L1 traffic counters.
func (h *Hierarchy) CacheStats() Statistics {
	return h.l1.Stats()
}

// UncachedReads returns the number of reads that bypassed the L1.
func (h *Hierarchy) UncachedReads() uint64 {
	return h.uncachedReads
}

// UncachedWrites returns the number of writes that bypassed the L1.
func (h *Hierarchy) UncachedWrites() uint64 {
	return h.uncachedWrites
}
