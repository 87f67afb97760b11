package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/grovetools/kb/cmd"
)

func main() {
	// Tokens such as GITHUB_TOKEN may live in a local .env.
	_ = godotenv.Load()

	if err := cmd.NewRootCmd(cmd.NewApp()).Execute(); err != nil {
		os.Exit(1)
	}
}
