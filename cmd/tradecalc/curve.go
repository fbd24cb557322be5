package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dynastycalc/trade-engine/internal/pickcurve"
)

func newCurveCmd() *cobra.Command {
	var superflex, tePremium bool

	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the rookie pick curve for a league format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			curve := pickcurve.New(superflex, tePremium)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ROUND\tVALUE")
			for _, r := range pickcurve.Rounds {
				fmt.Fprintf(tw, "%s\t%d\n", r, curve.Value(r))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&superflex, "superflex", false, "superflex league")
	cmd.Flags().BoolVar(&tePremium, "te-premium", false, "tight end premium league")
	return cmd
}
