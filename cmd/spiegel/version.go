package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set at build time via ldflags; empty values fall back to the build
// info embedded by the Go toolchain.
var (
	version = ""
	commit  = ""
	date    = ""
)

// buildDetails is the resolved version triple printed by the version
// command.
type buildDetails struct {
	version string
	commit  string
	date    string
}

// resolveBuildDetails fills the triple from ldflags first, then from
// debug.ReadBuildInfo in a single pass over the VCS settings.
func resolveBuildDetails() buildDetails {
	d := buildDetails{version: version, commit: commit, date: date}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		d.fillDefaults()
		return d
	}

	if d.version == "" {
		d.version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if d.commit == "" {
				d.commit = shortHash(s.Value)
			}
		case "vcs.time":
			if d.date == "" {
				d.date = s.Value
			}
		}
	}

	d.fillDefaults()
	return d
}

// fillDefaults replaces anything still unknown with a placeholder.
func (d *buildDetails) fillDefaults() {
	if d.version == "" {
		d.version = "(devel)"
	}
	if d.commit == "" {
		d.commit = "unknown"
	}
	if d.date == "" {
		d.date = "unknown"
	}
}

// shortHash abbreviates a full VCS revision to seven characters.
func shortHash(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of spiegel.`,
		Run: func(cmd *cobra.Command, _ []string) {
			d := resolveBuildDetails()
			fmt.Fprintf(cmd.OutOrStdout(), "spiegel %s (commit %s, built %s)\n",
				d.version, d.commit, d.date)
		},
	}
}
