// Package main is the entry point for the vibe CLI.
package main

import (
	"os"

	"github.com/vibe-cli/vibe/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
