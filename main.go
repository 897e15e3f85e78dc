package main

import (
	"os"

	"github.com/spigell/music-dna/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
