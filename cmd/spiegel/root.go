// Package main provides the entry point for the spiegel CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for spiegel.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spiegel",
		Short: "Mirror remote file trees into local directories",
		Long: `Spiegel mirrors remote file trees into local directories.

Crawl targets are declared in a spiegel.yaml configuration file. Each
run synchronizes the local mirror with the remote state: new files are
downloaded, unchanged files are left alone, and files that vanished
remotely are cleaned up after a run that finished without errors.`,
		Version:       resolveBuildDetails().version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
