package mem

import (
	"encoding/json"
	"fmt"
	"os"
)

// CacheConfig holds the geometry and timing of one cache level.
type CacheConfig struct {
	// Size is the total capacity in bytes.
	Size int `json:"size"`

	// Associativity is the number of ways per set.
	Associativity int `json:"associativity"`

	// BlockSize is the line size in bytes.
	BlockSize int `json:"block_size"`

	// HitLatency is the cost of a hit, in cycles.
	HitLatency uint64 `json:"hit_latency"`

	// MissLatency is the cost of a miss, in cycles, including the
	// backing-store access.
	MissLatency uint64 `json:"miss_latency"`

	// WriteBack selects the write policy: dirty lines written back on
	// eviction when set, every store forwarded to the backing store
	// when clear.
	WriteBack bool `json:"write_back"`
}

// Config holds the whole memory model's configuration: the L1 geometry
// and the flat cost of accesses that bypass it.
type Config struct {
	// L1 is the first-level cache configuration.
	L1 CacheConfig `json:"l1"`

	// MemLatency is the cost in cycles of an uncached access.
	MemLatency uint64 `json:"mem_latency"`
}

// DefaultCacheConfig returns a 34K-class L1 data cache: 32 KiB, 4-way,
// 32-byte lines, write-back.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Size:          32 * 1024,
		Associativity: 4,
		BlockSize:     32,
		HitLatency:    1,
		MissLatency:   30,
		WriteBack:     true,
	}
}

// DefaultConfig returns the default memory model configuration.
func DefaultConfig() *Config {
	return &Config{
		L1:         DefaultCacheConfig(),
		MemLatency: 30,
	}
}

// LoadConfig loads a Config from a JSON file. Fields absent from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse memory config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize memory config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write memory config file: %w", err)
	}

	return nil
}

// Validate checks that the cache geometry is realizable.
func (c *CacheConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("size must be > 0")
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0")
	}
	if c.BlockSize <= 0 || c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block_size must be a power of two")
	}
	if c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size %d does not divide into %d-way sets of %d-byte blocks",
			c.Size, c.Associativity, c.BlockSize)
	}
	return nil
}

// Validate checks the whole memory model configuration.
func (c *Config) Validate() error {
	if err := c.L1.Validate(); err != nil {
		return fmt.Errorf("invalid l1 config: %w", err)
	}
	return nil
}
