package main

import (
	"os"

	"github.com/23skdu/longbow-spyglass/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
