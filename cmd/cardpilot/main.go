package main

import (
	"os"

	"github.com/cardpilot/cardpilot/cmd/cardpilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
