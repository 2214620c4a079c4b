// Package main provides the entry point for CakemuOoO.
// CakemuOoO is a cycle-driven, speculative out-of-order RV32I core
// simulator using Tomasulo-style dynamic scheduling.
//
// For the full CLI, use: go run ./cmd/cakemuooo
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("CakemuOoO - Out-of-Order RV32I Core Simulator")
	fmt.Println("")
	fmt.Println("Usage: cakemuooo [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -f <file>    Program binary file (default: program.bin)")
	fmt.Println("  -t <time>    Simulation time in ns (default: 1000)")
	fmt.Println("  -p <type>    Branch predictor type (default: two_bit)")
	fmt.Println("  -r           Generate detailed performance report")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/cakemuooo' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/cakemuooo' instead.")
	}
}
