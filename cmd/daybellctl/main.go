// Package main is the entry point for the daybellctl CLI.
package main

import (
	"os"

	"daybell/cmd/daybellctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
