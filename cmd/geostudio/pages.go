package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"finitefield.org/geostudio-web/internal/blocks"
	"finitefield.org/geostudio-web/internal/config"
	"finitefield.org/geostudio-web/internal/nav"
	"finitefield.org/geostudio-web/internal/pages"
)

func newPagesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pages [id...]",
		Short: "List the site pages, or show what each id resolves to",
		Long: "Loads content and templates the same way serve does, so a clean run also\n" +
			"confirms that every page renders from the configured sources.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			_, _, registry, err := buildRegistry(cfg)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if len(args) == 0 {
				fmt.Fprintln(tw, "ID\tLABEL\tTEMPLATE")
				for _, id := range pages.All() {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", id, nav.Label(id), blocks.TemplateName(id))
				}
				return tw.Flush()
			}
			fmt.Fprintln(tw, "INPUT\tPAGE\tKNOWN")
			for _, raw := range args {
				fmt.Fprintf(tw, "%q\t%s\t%t\n", raw, registry.Canonical(raw), pages.ID(raw).Known())
			}
			return tw.Flush()
		},
	}
}
