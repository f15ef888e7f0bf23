package main

import (
	"os"

	"github.com/CompassSecurity/imageleek/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
