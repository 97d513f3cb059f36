package isa

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Config describes one modeled CPU variant. TLB geometry and derived-state
// rules are taken from here at construction time; the values never change
// while a CPU context is live.
type Config struct {
	// Name identifies the variant in reports and config files.
	Name string `json:"name"`

	// ISA is the bitmask of implemented instruction-set levels and
	// extensions.
	ISA Features `json:"isa"`

	// MMU selects the translation strategy (0=none, 1=fixed, 2=r4000).
	MMU MMUType `json:"mmu"`

	// TLBEntries is the TLB capacity for the r4000 MMU.
	// Ignored by the other strategies.
	TLBEntries int `json:"tlb_entries"`

	// PageBits is the log2 of the base page size. Default: 12 (4 KiB).
	PageBits uint `json:"page_bits"`

	// VirtAddrBits is the implemented virtual-address width. Addresses
	// are truncated to this width before translation.
	VirtAddrBits uint `json:"virt_addr_bits"`

	// PhysAddrBits is the implemented physical-address width.
	PhysAddrBits uint `json:"phys_addr_bits"`
}

// Is64Bit reports whether the variant implements 64-bit addressing.
func (c *Config) Is64Bit() bool {
	return c.ISA.Is64Bit()
}

// PageSize returns the base page size in bytes.
func (c *Config) PageSize() uint64 {
	return 1 << c.PageBits
}

// SegMask returns the mask covering the implemented virtual-address bits.
func (c *Config) SegMask() uint64 {
	if c.VirtAddrBits >= 64 {
		return ^uint64(0)
	}
	return (1 << c.VirtAddrBits) - 1
}

// DefaultConfig returns the default CPU variant, a 34K-class multithreaded
// MIPS32R2 core. It exercises the widest set of derivation rules (DSP, MT,
// software-refilled TLB).
func DefaultConfig() *Config {
	return M34KConfig()
}

// R4000Config returns a classic 64-bit MIPS III variant.
// Geometry values are based on published R4000 datasheet figures.
func R4000Config() *Config {
	return &Config{
		Name:         "R4000",
		ISA:          LevelMIPS3,
		MMU:          MMUR4000,
		TLBEntries:   48,
		PageBits:     12,
		VirtAddrBits: 40,
		PhysAddrBits: 36,
	}
}

// M4KConfig returns a microcontroller-class MIPS32 variant with the fixed
// block-translation MMU.
func M4KConfig() *Config {
	return &Config{
		Name:         "M4K",
		ISA:          LevelMIPS32,
		MMU:          MMUFixed,
		PageBits:     12,
		VirtAddrBits: 32,
		PhysAddrBits: 32,
	}
}

// M24KConfig returns a 24Kf-class single-threaded MIPS32R2 variant with a
// hardware FPU and no ASEs.
func M24KConfig() *Config {
	return &Config{
		Name:         "24Kf",
		ISA:          LevelMIPS32R2,
		MMU:          MMUR4000,
		TLBEntries:   32,
		PageBits:     12,
		VirtAddrBits: 32,
		PhysAddrBits: 32,
	}
}

// M34KConfig returns a 34K-class multithreaded MIPS32R2 variant with the
// DSP module.
func M34KConfig() *Config {
	return &Config{
		Name:         "34K",
		ISA:          LevelMIPS32R2 | DSP | DSPR2 | MT,
		MMU:          MMUR4000,
		TLBEntries:   16,
		PageBits:     12,
		VirtAddrBits: 32,
		PhysAddrBits: 32,
	}
}

// P5600Config returns a P5600-class MIPS32R5 variant with the SIMD
// architecture and 40-bit extended physical addressing.
func P5600Config() *Config {
	return &Config{
		Name:         "P5600",
		ISA:          LevelMIPS32R5 | MSA,
		MMU:          MMUR4000,
		TLBEntries:   64,
		PageBits:     12,
		VirtAddrBits: 32,
		PhysAddrBits: 40,
	}
}

// I6400Config returns an I6400-class 64-bit MIPS64R6 variant with the SIMD
// architecture.
func I6400Config() *Config {
	return &Config{
		Name:         "I6400",
		ISA:          LevelMIPS64R6 | MSA,
		MMU:          MMUR4000,
		TLBEntries:   48,
		PageBits:     12,
		VirtAddrBits: 48,
		PhysAddrBits: 48,
	}
}

// BareConfig returns a minimal MIPS32 variant with no MMU, for bring-up
// and testing.
func BareConfig() *Config {
	return &Config{
		Name:         "bare",
		ISA:          LevelMIPS32,
		MMU:          MMUNone,
		PageBits:     12,
		VirtAddrBits: 32,
		PhysAddrBits: 32,
	}
}

// presets maps preset names accepted by PresetConfig.
var presets = map[string]func() *Config{
	"R4000": R4000Config,
	"M4K":   M4KConfig,
	"24Kf":  M24KConfig,
	"34K":   M34KConfig,
	"P5600": P5600Config,
	"I6400": I6400Config,
	"bare":  BareConfig,
}

// PresetConfig returns the named preset variant.
func PresetConfig(name string) (*Config, error) {
	f, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown CPU preset %q (have %v)", name, PresetNames())
	}
	return f(), nil
}

// PresetNames returns the available preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadConfig loads a Config from a JSON file. Fields absent from the file
// keep their default-variant values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CPU config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse CPU config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize CPU config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write CPU config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.ISA == 0 {
		return fmt.Errorf("isa must name at least one instruction-set level")
	}
	if c.MMU > MMUR4000 {
		return fmt.Errorf("mmu must be 0 (none), 1 (fixed), or 2 (r4000)")
	}
	if c.MMU == MMUR4000 && c.TLBEntries <= 0 {
		return fmt.Errorf("tlb_entries must be > 0 for the r4000 mmu")
	}
	if c.PageBits < 10 || c.PageBits > 16 {
		return fmt.Errorf("page_bits must be between 10 and 16")
	}
	if c.VirtAddrBits < 32 || c.VirtAddrBits > 64 {
		return fmt.Errorf("virt_addr_bits must be between 32 and 64")
	}
	if !c.Is64Bit() && c.VirtAddrBits != 32 {
		return fmt.Errorf("virt_addr_bits must be 32 without 64-bit addressing")
	}
	if c.PhysAddrBits < 32 || c.PhysAddrBits > 64 {
		return fmt.Errorf("phys_addr_bits must be between 32 and 64")
	}
	return nil
}
