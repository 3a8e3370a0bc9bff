package main

import (
	"os"

	"github.com/quartermaster-app/quartermaster/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
