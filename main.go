package main

import (
	"os"

	"github.com/guilhermegouw/cadence/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
