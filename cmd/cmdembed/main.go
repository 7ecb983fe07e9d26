// Package main is the entry point for the cmdembed tool.
package main

import (
	"fmt"
	"os"

	"github.com/dshills/cmdembed/cmd/cmdembed/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
