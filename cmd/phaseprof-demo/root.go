package main

import (
	"github.com/spf13/cobra"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "phaseprof-demo",
		Short: "Profile a simulated fetch pipeline",
		Long: `phaseprof-demo drives a simulated host-to-device fetch pipeline
and records every phase of it (lookup, slot lock, IO submission, waiting
and copying) plus the in-flight device commands with phaseprof.

Configuration is read from an optional YAML file, then PHASEPROF_*
environment variables, then flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}
