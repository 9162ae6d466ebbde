// Package main is the entry point for the meshmon Meshtastic monitor.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/meshmon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
