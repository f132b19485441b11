// Package main is a stub root entry point. The real CLI lives in
// cmd/legv8; this exists only so `go run .` gives a pointer there
// instead of a "no main function" error.
//
// For the full CLI, use: go run ./cmd/legv8
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("legv8 - LEGv8 assembler and functional VM")
	fmt.Println("")
	fmt.Println("Usage: legv8 [options] <file>")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/legv8' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: you provided arguments. Use 'go run ./cmd/legv8' instead.")
	}
}
