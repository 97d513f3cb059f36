package mem

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// AccessResult reports the outcome of one cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles the access takes.
	Latency uint64
	// Data is the value read (for read accesses).
	Data uint64
	// Evicted is true when a valid block was displaced.
	Evicted bool
	// EvictedAddr is the address of the displaced block.
	EvictedAddr uint64
}

// Statistics holds cache traffic counters.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// BackingStore is the next level of the memory system behind a cache.
// Memory implements it.
type BackingStore interface {
	// Read fetches size bytes from the backing store.
	Read(addr uint64, size int) []byte
	// Write stores data to the backing store.
	Write(addr uint64, data []byte)
}

// Cache is a synchronous set-associative cache. Tag and replacement state
// live in an akita cache directory; line data lives beside it, indexed by
// (set, way).
type Cache struct {
	config CacheConfig

	directory *akitacache.DirectoryImpl
	dataStore [][]byte

	stats   Statistics
	backing BackingStore
}

// NewCache creates a cache over the given backing store. The
// configuration must have passed Validate.
func NewCache(config CacheConfig, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() CacheConfig {
	return c.config
}

// Stats returns the traffic counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears the traffic counters.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// blockIndex computes the dataStore index of a directory block.
func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// blockAddr aligns addr down to its line boundary.
func (c *Cache) blockAddr(addr uint64) uint64 {
	return addr / uint64(c.config.BlockSize) * uint64(c.config.BlockSize)
}

// Read reads size bytes at addr through the cache.
func (c *Cache) Read(addr uint64, size int) AccessResult {
	c.stats.Reads++

	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr % uint64(c.config.BlockSize)
		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Data:    extractData(c.dataStore[c.blockIndex(block)], offset, size),
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, false, 0)
}

// Write writes the low size bytes of value at addr through the cache.
// Misses allocate; the write policy decides whether the store also goes
// straight to the backing store.
func (c *Cache) Write(addr uint64, size int, value uint64) AccessResult {
	c.stats.Writes++

	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr % uint64(c.config.BlockSize)
		storeData(c.dataStore[c.blockIndex(block)], offset, size, value)
		if c.config.WriteBack {
			block.IsDirty = true
		} else {
			c.writeThrough(addr, size, value)
		}

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, true, value)
}

// handleMiss fetches the missing line, displacing a victim if needed.
func (c *Cache) handleMiss(addr uint64, size int, isWrite bool, writeData uint64) AccessResult {
	result := AccessResult{
		Hit:     false,
		Latency: c.config.MissLatency,
	}

	blockAddr := c.blockAddr(addr)

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag

		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++
			c.backing.Write(victim.Tag, victimData)
		}
	}

	if c.backing != nil {
		copy(victimData, c.backing.Read(blockAddr, c.config.BlockSize))
	} else {
		for i := range victimData {
			victimData[i] = 0
		}
	}

	// Tag stores the line-aligned address.
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false

	offset := addr % uint64(c.config.BlockSize)
	if isWrite {
		storeData(victimData, offset, size, writeData)
		if c.config.WriteBack {
			victim.IsDirty = true
		} else {
			c.writeThrough(addr, size, writeData)
		}
	} else {
		result.Data = extractData(victimData, offset, size)
	}

	c.directory.Visit(victim)

	return result
}

// writeThrough forwards one store to the backing store.
func (c *Cache) writeThrough(addr uint64, size int, value uint64) {
	if c.backing == nil {
		return
	}
	buf := make([]byte, size)
	storeData(buf, 0, size, value)
	c.backing.Write(addr, buf)
}

// Invalidate drops the line containing addr without writing it back.
func (c *Cache) Invalidate(addr uint64) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back every dirty line and invalidates the whole cache.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				c.stats.Writebacks++
				c.backing.Write(block.Tag, c.dataStore[c.blockIndex(block)])
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates every line without writeback and clears the counters.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

// extractData composes a little-endian value of size bytes from data.
func extractData(data []byte, offset uint64, size int) uint64 {
	if data == nil || int(offset)+size > len(data) {
		return 0
	}

	var result uint64
	for i := 0; i < size; i++ {
		result |= uint64(data[int(offset)+i]) << (i * 8)
	}
	return result
}

// storeData spreads a little-endian value of size bytes into data.
func storeData(data []byte, offset uint64, size int, value uint64) {
	if data == nil || int(offset)+size > len(data) {
		return
	}

	for i := 0; i < size; i++ {
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}
