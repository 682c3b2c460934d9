package main

import (
	"os"

	"jenkins2ado/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
