// Package main is the entry point for the mfynab CLI.
package main

import (
	"os"

	"github.com/mfynab/mfynab/cmd/mfynab/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
