package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set with -ldflags at build time.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "geostudio",
		Short:        "GeoStudio marketing site",
		Version:      version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}}\n  Commit: %s\n  Built:  %s\n", commit, buildDate))
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "geostudio.yaml", "path to the YAML config file (optional)")

	cmd.AddCommand(
		newServeCmd(opts),
		newPagesCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of geostudio",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "geostudio %s\n", version)
			fmt.Fprintf(out, "  Commit: %s\n", commit)
			fmt.Fprintf(out, "  Built:  %s\n", buildDate)
		},
	}
}
