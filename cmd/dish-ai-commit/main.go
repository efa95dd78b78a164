package main

import (
	"os"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
