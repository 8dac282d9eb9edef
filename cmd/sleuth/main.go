package main

import (
	"os"

	"github.com/varun/sleuth/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
