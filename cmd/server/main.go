package main

import (
	"os"

	"hradmin/internal/app/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
