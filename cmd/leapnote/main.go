// Package main provides the leapnote command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/leapnote/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
