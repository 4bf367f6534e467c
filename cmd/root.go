package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command for the coursehub CLI.
var rootCmd = &cobra.Command{
	Use:   "coursehub",
	Short: "Course platform backend",
	Long: `coursehub is the backend API server for the course platform.

It exposes registration/login, user profiles, and course management
over HTTP. Run "coursehub server" to start serving requests, or
"coursehub migrate up" to apply database migrations.`,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
