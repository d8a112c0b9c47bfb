package main

import (
	"os"

	"github.com/spigell/insurance-advisor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
