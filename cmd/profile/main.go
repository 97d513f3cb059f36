// Package main provides a profiling wrapper for the address-translation
// hot path, to identify performance bottlenecks in lookup and refill.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/mipsim/isa"
	"github.com/sarchlab/mipsim/mmu"
)

var (
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	iterations = flag.Int("n", 10000000, "number of translations to run")
	entries    = flag.Int("entries", 48, "TLB capacity to model")
)

func main() {
	flag.Parse()

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	cfg := isa.R4000Config()
	cfg.TLBEntries = *entries
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in profile configuration: %v\n", err)
		os.Exit(1)
	}

	tlb := mmu.NewTLB(cfg)

	fmt.Printf("TLB entries: %d\n", tlb.Capacity())
	fmt.Printf("Translations: %d\n", *iterations)

	start := time.Now()
	refills := run(tlb, cfg)
	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Refill misses: %d (%.2f%%)\n",
		refills, 100.0*float64(refills)/float64(*iterations))
	fmt.Printf("Elapsed time: %v\n", elapsed)
	fmt.Printf("Translations/second: %.0f\n", float64(*iterations)/elapsed.Seconds())
}

// run drives the translation loop and returns the number of refills taken.
// The address stream mixes a hot working set that mostly hits with a
// climbing cold stride that keeps forcing entries through the
// software-refill path, like a large sequential scan under a busy kernel.
func run(tlb *mmu.TLB, cfg *isa.Config) uint64 {
	const asid = 1
	pageSize := cfg.PageSize()
	pairBytes := 2 * pageSize

	hotPairs := tlb.Capacity() / 2
	if hotPairs == 0 {
		hotPairs = 1
	}
	hot := make([]uint64, hotPairs)
	for i := range hot {
		hot[i] = 0x0040_0000 + uint64(i)*pairBytes
	}

	cold := uint64(1) << 30
	rng := uint32(12345)
	var refills uint64

	for i := 0; i < *iterations; i++ {
		rng = rng*1664525 + 1013904223

		var vaddr uint64
		if rng&7 != 0 {
			vaddr = hot[int(rng>>8)%len(hot)] | uint64(rng)&(pageSize-1)
		} else {
			cold += pairBytes
			vaddr = cold
		}

		if _, err := tlb.Translate(vaddr, mmu.AccessRead, asid); err == nil {
			continue
		}

		refills++
		tlb.WriteRandom(refillEntry(vaddr, asid, pageSize))

		// The guest handler returns and the access re-executes.
		if _, err := tlb.Translate(vaddr, mmu.AccessRead, asid); err != nil {
			fmt.Fprintf(os.Stderr, "Error: refill did not take at %#x: %v\n", vaddr, err)
			os.Exit(1)
		}
	}

	return refills
}

// refillEntry builds the mapping a refill handler would install for vaddr.
// Frames are identity-mapped; profiling only needs the lookup shape.
func refillEntry(vaddr uint64, asid uint16, pageSize uint64) mmu.Entry {
	vpn := vaddr &^ (2*pageSize - 1)
	e := mmu.Entry{VPN: vpn, ASID: asid}
	for i := range e.Pages {
		e.Pages[i] = mmu.Subpage{
			PFN:   vpn + uint64(i)*pageSize,
			CCA:   3,
			Valid: true,
			Dirty: true,
		}
	}
	return e
}
