// Command s7simd is the CLI entry point for the S7 DB Simulator: it wires
// configuration loading, validation, simulator construction, optional
// script execution, and signal-based shutdown around the core packages.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
