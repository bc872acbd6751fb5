package main

import (
	"os"

	"github.com/lab-banks/banks/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
