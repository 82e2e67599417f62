package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/koustreak/blindsight/internal/dialect"
)

func newDialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported engines in detection order",
		Args:  cobra.NoArgs,
		// no config needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tNAME\tFINGERPRINT\tCOMPARE")
			for _, p := range dialect.Registry {
				compare := "code point"
				if p.LiteralCompare {
					compare = "literal"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Kind, p.Name, p.Fingerprint, compare)
			}
			return w.Flush()
		},
	}
}
