// Package main provides the entry point for PipSim.
// PipSim is a cycle-accurate pipelined MIPS CPU simulator.
//
// For the full CLI, use: go run ./cmd/pipsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("PipSim - Pipelined MIPS CPU Simulator")
	fmt.Println("")
	fmt.Println("Usage: pipsim (-atp | -antp) [options] <image.hex>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -atp       Use the always-taken branch predictor")
	fmt.Println("  -antp      Use the always-not-taken branch predictor")
	fmt.Println("  -m A:B     Dump the memory range A:B")
	fmt.Println("  -d         Dump registers each cycle")
	fmt.Println("  -p         Dump pipeline PCs each cycle")
	fmt.Println("  -n N       Stop after N retired instructions")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/pipsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/pipsim' instead.")
	}
}
