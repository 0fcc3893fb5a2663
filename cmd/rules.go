// File: cmd/rules.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/rules"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the built-in rules and the checks they report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RULE\tCHECK\tSEVERITY\tNAME")
			for _, r := range rules.Default() {
				for _, id := range r.Checks() {
					info := core.Lookup(id)
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name(), id, info.Severity, info.Name)
				}
			}
			return w.Flush()
		},
	}
}
