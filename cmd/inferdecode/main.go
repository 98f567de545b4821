package main

import (
	"os"

	"github.com/nevernever69/InferDecode/cmd/inferdecode/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
