package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cinelog/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cinelog",
		Short: "CineLog API Server",
		Long:  `CineLog is a small movie comment and card service backed by a single JSON collection file, with image uploads and an external movie-metadata proxy.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
