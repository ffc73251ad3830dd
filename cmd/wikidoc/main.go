// Package main is the entry point for the wikidoc CLI.
package main

import (
	"os"

	"github.com/jmylchreest/wikidoc/cmd/wikidoc/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
