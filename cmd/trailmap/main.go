package main

import (
	"os"

	"github.com/fitz/trailmap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
