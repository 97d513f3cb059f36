// Package main provides the entry point for mipsim.
// mipsim models the memory-management and mode-derivation core of a MIPS
// CPU, built on Akita cache components.
//
// For the full CLI, use: go run ./cmd/mipsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("mipsim - MIPS memory-management core model")
	fmt.Println("")
	fmt.Println("Usage: mipsim [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config       Path to CPU configuration JSON file")
	fmt.Println("  -preset       Built-in CPU variant to model")
	fmt.Println("  -save-config  Write the resolved configuration and exit")
	fmt.Println("  -v            Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/mipsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/mipsim' instead.")
	}
}
