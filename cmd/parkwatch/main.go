// Package main is the entry point for the parkwatch CLI.
package main

import (
	"github.com/skitools/parkwatch/cmd/parkwatch/cmd"
)

func main() {
	cmd.Execute()
}
