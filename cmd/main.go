package main

import (
	"os"

	"adaptive-quiz-engine/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
