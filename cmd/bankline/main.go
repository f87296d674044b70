package main

import (
	"os"

	"github.com/bankline-dev/bankline/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
