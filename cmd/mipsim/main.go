// Package main provides the entry point for mipsim.
// mipsim models the memory-management and mode-derivation core of a MIPS
// CPU: it drives one emulated context through a canned scenario and
// reports what the translation and derivation machinery did.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/mipsim/cp0"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/fpu"
	"github.com/sarchlab/mipsim/isa"
	"github.com/sarchlab/mipsim/mem"
	"github.com/sarchlab/mipsim/mmu"
)

var (
	configPath = flag.String("config", "", "Path to CPU configuration JSON file")
	preset     = flag.String("preset", "", "Built-in CPU variant to model")
	saveConfig = flag.String("save-config", "", "Write the resolved CPU configuration to a JSON file and exit")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Usage: mipsim [options]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := resolveConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving CPU config: %v\n", err)
		os.Exit(1)
	}

	if *saveConfig != "" {
		if err := cfg.SaveConfig(*saveConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving CPU config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s configuration to %s\n", cfg.Name, *saveConfig)
		return
	}

	hierarchy, err := mem.NewHierarchy(mem.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building memory system: %v\n", err)
		os.Exit(1)
	}

	cpu, err := emu.New(cfg, emu.WithMemory(hierarchy))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building CPU: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Variant: %s (%s mmu)\n", cfg.Name, cfg.MMU)
	if *verbose {
		if cfg.MMU == isa.MMUR4000 {
			fmt.Printf("TLB entries: %d\n", cfg.TLBEntries)
		}
		fmt.Printf("Page size: %d KiB\n", cfg.PageSize()/1024)
		fmt.Printf("Address bits: %d virtual, %d physical\n",
			cfg.VirtAddrBits, cfg.PhysAddrBits)
	}
	fmt.Printf("\n")

	bootState(cpu)

	runPrivilegeDemo(cpu)
	runTranslationDemo(cpu)
	runInterruptDemo(cpu)
	runFPDemo(cpu)

	printReport(cpu, hierarchy)
}

// resolveConfig picks the CPU variant from the command line: an explicit
// JSON file, a named preset, or the default variant.
func resolveConfig() (*isa.Config, error) {
	if *configPath != "" && *preset != "" {
		return nil, fmt.Errorf("-config and -preset are mutually exclusive")
	}
	if *configPath != "" {
		return isa.LoadConfig(*configPath)
	}
	if *preset != "" {
		return isa.PresetConfig(*preset)
	}
	return isa.DefaultConfig(), nil
}

// bootState seeds the register state boot firmware would leave behind:
// kseg0 cached, the FPU reporting a 64-bit register file, and the
// configured extensions enabled.
func bootState(cpu *emu.CPU) {
	cpu.Regs.Config0 |= uint32(mem.CCACached)
	cpu.Regs.FCR0 |= fpu.FCR0F64
	if cpu.Config().ISA.Has(isa.MSA) {
		cpu.Regs.Config5 |= cp0.Config5MSAEn
	}
	cpu.UpdateFlags()
}

// runPrivilegeDemo walks a typical privilege round trip and shows the
// derived-mode word after each register write.
func runPrivilegeDemo(cpu *emu.CPU) {
	fmt.Printf("Privilege transitions:\n")

	steps := []struct {
		name  string
		apply func(r *cp0.Registers)
	}{
		{"boot", func(r *cp0.Registers) {}},
		{"enable FPU", func(r *cp0.Registers) { r.Status |= cp0.StatusCU1 }},
		{"enable DSP", func(r *cp0.Registers) { r.Status |= cp0.StatusMX }},
		{"drop to user mode", func(r *cp0.Registers) { r.Status |= 2 << cp0.StatusKSUShift }},
		{"interrupt taken", func(r *cp0.Registers) { r.Status |= cp0.StatusEXL }},
		{"handler returns", func(r *cp0.Registers) { r.Status &^= cp0.StatusEXL }},
		{"debug entry", func(r *cp0.Registers) { r.Debug |= cp0.DebugDM }},
		{"debug exit", func(r *cp0.Registers) { r.Debug &^= cp0.DebugDM }},
	}

	for _, s := range steps {
		s.apply(&cpu.Regs)
		cpu.UpdateFlags()
		fmt.Printf("  %-18s mode=%-10s flags=%s\n",
			s.name, modeName(cpu.Flags), flagNames(cpu.Flags))
	}

	// The rest of the scenario runs in kernel mode.
	cpu.Regs.Status &^= cp0.StatusKSUMask
	cpu.UpdateFlags()
}

// runTranslationDemo drives the variant's translation strategy: a full
// miss/refill/dirty round trip on TLB cores, a window walk otherwise.
func runTranslationDemo(cpu *emu.CPU) {
	fmt.Printf("\nTranslation:\n")
	if cpu.TLB != nil {
		runTLBDemo(cpu)
		return
	}

	for _, vaddr := range []uint64{0x0000_1000, 0x8000_2000, 0xA000_3000} {
		describeAccess(cpu, vaddr, mmu.AccessRead)
	}

	// One cached and one uncached round trip through the window map.
	storeAndLoad(cpu, 0x0000_1000, 8, 0x0123_4567_89AB_CDEF)
	storeAndLoad(cpu, 0xA000_3000, 4, 0xFF)
}

// runTLBDemo walks one software-refill round trip: refill miss, wired
// code install, random data install, the modified-write trap, an uncached
// device page, and a flush.
func runTLBDemo(cpu *emu.CPU) {
	const (
		codeVA = 0x0040_0000
		codePA = 0x0100_0000
		dataVA = 0x0044_2000
		dataPA = 0x0140_0000
		ioVA   = 0x0048_0000
		ioPA   = 0x1FC0_0000
	)

	tlb := cpu.TLB
	pageSize := cpu.Config().PageSize()

	cpu.Regs.EntryHi = 7
	asid := cpu.Regs.ASID()

	if err := tlb.SetWired(1); err != nil {
		fmt.Fprintf(os.Stderr, "Error wiring TLB: %v\n", err)
		os.Exit(1)
	}

	// The boot image sits in physical memory before translation starts.
	ram := cpu.Memory().Memory()
	ram.Write32(codePA, 0x2402_0001) // addiu v0, zero, 1

	describeAccess(cpu, codeVA, mmu.AccessExecute)

	code := mapping(codeVA, asid, codePA, pageSize, false, mem.CCACached)
	if err := tlb.WriteIndexed(0, code); err != nil {
		fmt.Fprintf(os.Stderr, "Error installing code mapping: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  tlbwi   idx %2d: %#010x -> %#010x\n", 0, uint64(codeVA), uint64(codePA))

	describeAccess(cpu, codeVA, mmu.AccessExecute)
	word, err := cpu.Fetch(codeVA)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching boot word: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  fetch   %#010x -> %#010x\n", uint64(codeVA), word)

	describeAccess(cpu, dataVA, mmu.AccessWrite)

	data := mapping(dataVA, asid, dataPA, pageSize, false, mem.CCACached)
	index := tlb.WriteRandom(data)
	fmt.Printf("  tlbwr   idx %2d: %#010x -> %#010x (clean)\n", index, uint64(dataVA), uint64(dataPA))

	// The first write through a clean page traps so the kernel can log it.
	err = cpu.Store(dataVA+8, 4, 0xDEAD_BEEF)
	fmt.Printf("  store   %#010x -> %v\n", uint64(dataVA+8), err)

	// The handler probes for the entry, sets Dirty, and retries.
	hit, ok := tlb.Probe(dataVA, asid)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: data mapping vanished from the TLB\n")
		os.Exit(1)
	}
	dirty := mapping(dataVA, asid, dataPA, pageSize, true, mem.CCACached)
	if err := tlb.WriteIndexed(hit, dirty); err != nil {
		fmt.Fprintf(os.Stderr, "Error marking data mapping dirty: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  tlbwi   idx %2d: dirty bit set\n", hit)

	storeAndLoad(cpu, dataVA+8, 4, 0xDEAD_BEEF)

	// Device pages are mapped uncached.
	io := mapping(ioVA, asid, ioPA, pageSize, true, mem.CCAUncached)
	index = tlb.WriteRandom(io)
	fmt.Printf("  tlbwr   idx %2d: %#010x -> %#010x (uncached)\n", index, uint64(ioVA), uint64(ioPA))
	storeAndLoad(cpu, ioVA+4, 4, 0x80)

	fmt.Printf("  flush: %d live entries dropped\n", tlb.Live())
	tlb.Flush()
	describeAccess(cpu, codeVA, mmu.AccessExecute)
}

// runInterruptDemo shows the dispatch gate under both interrupt wirings:
// per-line masking, then an external controller feeding priority levels.
func runInterruptDemo(cpu *emu.CPU) {
	fmt.Printf("\nInterrupt gate:\n")
	saved := cpu.Regs

	cases := []struct {
		name    string
		status  uint32
		cause   uint32
		config3 uint32
	}{
		{"masked line", cp0.StatusIE | 1<<cp0.StatusIMShift, 4 << cp0.CauseIPShift, 0},
		{"unmasked line", cp0.StatusIE | 4<<cp0.StatusIMShift, 4 << cp0.CauseIPShift, 0},
		{"held at EXL", cp0.StatusIE | cp0.StatusEXL | 4<<cp0.StatusIMShift, 4 << cp0.CauseIPShift, 0},
		{"EIC below threshold", cp0.StatusIE | 4<<cp0.StatusIMShift, 3 << cp0.CauseIPShift, cp0.Config3VEIC},
		{"EIC above threshold", cp0.StatusIE | 4<<cp0.StatusIMShift, 5 << cp0.CauseIPShift, cp0.Config3VEIC},
	}

	for _, tc := range cases {
		cpu.Regs.Status = tc.status
		cpu.Regs.Cause = tc.cause
		cpu.Regs.Config3 = saved.Config3 | tc.config3
		fmt.Printf("  %-20s enabled=%-5v pending=%-5v ready=%v\n",
			tc.name, cpu.InterruptsEnabled(), cpu.InterruptsPending(), cpu.InterruptReady())
	}

	cpu.Regs = saved
	cpu.UpdateFlags()
}

// runFPDemo resynchronizes the floating-point execution contexts from
// freshly written control words.
func runFPDemo(cpu *emu.CPU) {
	fmt.Printf("\nFloating-point mode sync:\n")

	cpu.Regs.FCR31 = uint32(fpu.RoundTowardZero) | fpu.FCR31FS
	cpu.SyncScalarFP()
	printFPContext("scalar, legacy NaN", &cpu.ScalarFP)

	cpu.Regs.FCR31 |= fpu.FCR31NAN2008 | fpu.FCR31ABS2008
	cpu.SyncScalarFP()
	printFPContext("scalar, 2008 NaN", &cpu.ScalarFP)

	cpu.Regs.MSACSR = uint32(fpu.RoundTowardNegative) | fpu.MSACSRFS
	cpu.SyncSIMDFP()
	printFPContext("simd", &cpu.SIMDFP)
}

// printReport summarizes what the memory system did during the scenario.
func printReport(cpu *emu.CPU, hierarchy *mem.Hierarchy) {
	stats := hierarchy.CacheStats()
	accesses := stats.Reads + stats.Writes
	if accesses == 0 {
		accesses = 1 // Avoid division by zero
	}

	fmt.Printf("\n")
	fmt.Printf("Memory system:\n")
	fmt.Printf("  kseg0 attribute: %d (cached=%v)\n",
		cpu.Regs.K0(), mem.CCAIsCached(cpu.Regs.K0()))
	fmt.Printf("  Physical mask:   %#x\n", cpu.PhysMask)
	fmt.Printf("  L1 reads:        %4d\n", stats.Reads)
	fmt.Printf("  L1 writes:       %4d\n", stats.Writes)
	fmt.Printf("  L1 hits:         %4d (%5.1f%%)\n",
		stats.Hits, 100.0*float64(stats.Hits)/float64(accesses))
	fmt.Printf("  L1 misses:       %4d (%5.1f%%)\n",
		stats.Misses, 100.0*float64(stats.Misses)/float64(accesses))
	fmt.Printf("  Evictions:       %4d\n", stats.Evictions)
	fmt.Printf("  Writebacks:      %4d\n", stats.Writebacks)
	fmt.Printf("  Uncached reads:  %4d\n", hierarchy.UncachedReads())
	fmt.Printf("  Uncached writes: %4d\n", hierarchy.UncachedWrites())

	if cpu.TLB != nil {
		fmt.Printf("\n")
		fmt.Printf("TLB:\n")
		fmt.Printf("  Capacity: %d\n", cpu.TLB.Capacity())
		fmt.Printf("  Wired:    %d\n", cpu.TLB.Wired())
		fmt.Printf("  Live:     %d\n", cpu.TLB.Live())
	}
}

// describeAccess translates one address and prints the outcome.
func describeAccess(cpu *emu.CPU, vaddr uint64, access mmu.Access) {
	result, err := cpu.Translate(vaddr, access)
	if err != nil {
		fmt.Printf("  %-7s %#010x -> %v\n", access, vaddr, err)
		return
	}
	fmt.Printf("  %-7s %#010x -> %#010x (%s, cca %d)\n",
		access, vaddr, result.PhysAddr, result.Perms, result.CCA)
}

// storeAndLoad writes a value through the MMU and reads it back.
func storeAndLoad(cpu *emu.CPU, vaddr uint64, size int, value uint64) {
	if err := cpu.Store(vaddr, size, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error storing at %#x: %v\n", vaddr, err)
		os.Exit(1)
	}
	got, err := cpu.Load(vaddr, size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading at %#x: %v\n", vaddr, err)
		os.Exit(1)
	}
	fmt.Printf("  load    %#010x -> %#x\n", vaddr, got)
}

// mapping builds a live entry translating one even/odd page pair to a
// contiguous physical range.
func mapping(vpn uint64, asid uint16, pfn, pageSize uint64, dirty bool, cca uint8) mmu.Entry {
	e := mmu.Entry{VPN: vpn, ASID: asid}
	for i := range e.Pages {
		e.Pages[i] = mmu.Subpage{
			PFN:   pfn + uint64(i)*pageSize,
			CCA:   cca,
			Valid: true,
			Dirty: dirty,
		}
	}
	return e
}

// modeName returns the printable name of the effective privilege mode.
func modeName(f cp0.Flags) string {
	switch f.Mode() {
	case cp0.FlagKernel:
		return "kernel"
	case cp0.FlagSupervisor:
		return "supervisor"
	case cp0.FlagUser:
		return "user"
	default:
		return "reserved"
	}
}

// flagNames renders the set bits of a derived-mode word.
func flagNames(f cp0.Flags) string {
	var names []string
	add := func(bit cp0.Flags, name string) {
		if f&bit != 0 {
			names = append(names, name)
		}
	}
	add(cp0.FlagDebug, "dbg")
	add(cp0.Flag64, "64")
	add(cp0.FlagAddrWrap, "wrap")
	add(cp0.FlagCP0, "cp0")
	add(cp0.FlagFPU, "fpu")
	add(cp0.FlagF64, "f64")
	add(cp0.FlagCOP1X, "cop1x")
	add(cp0.FlagSBRI, "sbri")
	add(cp0.FlagDSP, "dsp")
	add(cp0.FlagDSPR2, "dspr2")
	add(cp0.FlagMSA, "msa")
	add(cp0.FlagFRE, "fre")
	add(cp0.FlagELPA, "elpa")
	add(cp0.FlagERL, "erl")
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

// printFPContext prints one floating-point context's mode state.
func printFPContext(name string, ctx *fpu.Context) {
	fmt.Printf("  %-20s rm=%-15s ftz=%-5v fitz=%-5v legacy-snan=%v\n",
		name, ctx.Rounding, ctx.FlushToZero, ctx.FlushInputsToZero, ctx.SNaNBitIsOne)
}
