// Package main provides the entry point for the Show Your App backend.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "showyourapp",
	Short: "Show Your App backend",
	Long:  "Show Your App serves the listing catalog REST API and runs the ingestion worker that turns social posts into app listings via an LLM agent.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
