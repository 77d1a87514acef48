// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citereview/internal/aggregate"
	"github.com/pdiddy/citereview/internal/workitem"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Rebuild final.csv and unavailable.csv from the whole corpus",
	Long: `Aggregate collects the positive rows of every analyzed seed into final.csv,
each tagged with its seed title, and lists every citing paper without a full
text in unavailable.csv. Both files are rebuilt from scratch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := corpus()
		sum, err := aggregate.Aggregate(c, logger)
		if err != nil {
			return err
		}
		if _, err := aggregate.CollectUnavailable(c, logger); err != nil {
			return err
		}
		fmt.Printf("%d positive row(s) from %d analyzed seed(s)\n", sum.Rows, sum.Items)
		if sum.HasFailures() {
			return fmt.Errorf("%d seed(s) had unreadable results", len(sum.Skipped))
		}
		return nil
	},
}

var unavailableCmd = &cobra.Command{
	Use:   "unavailable",
	Short: "List citing papers whose full text could not be downloaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := aggregate.CollectUnavailable(corpus(), logger)
		if err != nil {
			return err
		}
		fmt.Printf("%d unavailable paper(s) written to %s\n", n, corpus().Path(workitem.UnavailableTableFile))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(unavailableCmd)
}
