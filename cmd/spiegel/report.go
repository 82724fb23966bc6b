package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spiegelsync/spiegel/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [crawler...]",
		Short: "Render the stored run reports as Markdown",
		Long: `Report renders the persisted ledger of the last run of each crawler
as a Markdown document.

Without arguments every configured crawler is reported. With arguments
only the named crawlers are.

Examples:
  # Report on all configured crawlers
  spiegel report

  # Write the report of one crawler to a file
  spiegel report my-course -o report.md`,
		Args: cobra.ArbitraryArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: spiegel.yaml in current or XDG config directory)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to the specified file instead of stdout")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, args []string) error {
	cf, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	names, err := selectCrawlers(cf, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputPath, err := cmd.Flags().GetString("output"); err != nil {
		return err
	} else if outputPath != "" {
		f, err := os.Create(outputPath) //nolint:gosec // User-provided output path is intentional
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close() //nolint:errcheck // Best effort close after explicit sync below
		out = f
	}

	for _, name := range names {
		if err := renderReport(cmd, out, name, cf.Crawlers[name].OutputDir); err != nil {
			return err
		}
	}
	return nil
}

// renderReport loads one crawler's persisted ledger and renders it.
func renderReport(cmd *cobra.Command, out io.Writer, name, outputDir string) error {
	store, err := report.OpenStore(filepath.Join(outputDir, report.StoreFileName))
	if err != nil {
		return fmt.Errorf("crawler %q: %w", name, err)
	}
	defer store.Close() //nolint:errcheck // Read-only access

	stored, err := store.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("crawler %q: %w", name, err)
	}
	if stored == nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "crawler %q has no stored report yet\n", name)
		return nil
	}

	return report.NewMarkdownWriter(out).Write(name, stored, nil)
}
