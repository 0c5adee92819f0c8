package main

import (
	"os"

	"github.com/rustyeddy/cycles/cmd/cycles/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
