package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List registered strategies",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, log, err := newApp()
		defer log.Sync()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tLOOKBACK\tDESCRIPTION")
		for _, name := range a.Strategies().Names() {
			s, _ := a.Strategies().Get(name)
			fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name(), s.RequiredData().PriceHistory, s.Description())
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
