// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/citereview/internal/acquire"
	"github.com/pdiddy/citereview/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [seed titles...]",
	Short: "Advance seeds through every pipeline stage",
	Long: `Run creates a corpus directory for each new seed title and advances it
through acquisition, classification, context analysis and aggregation. Without
seed titles it advances every seed already in the corpus. Seeds that have
already passed a stage are not sent through it again.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSlice("stages", nil, "stages to run (acquire, classify, analyze, aggregate; default all)")
	addSeedFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	names, _ := cmd.Flags().GetStringSlice("stages")
	stages, err := pipeline.ParseStages(names)
	if err != nil {
		return err
	}
	seeds, err := seedTitles(cmd, args)
	if err != nil {
		return err
	}
	return drive(cmd, seeds, stages)
}

// drive runs the selected stages over seeds, or over the whole corpus when
// seeds is empty.
func drive(cmd *cobra.Command, seeds []string, stages pipeline.Stages) error {
	ctx := cmd.Context()
	d, closeLedger, err := newDriver(ctx, stages)
	if err != nil {
		return err
	}
	defer closeLedger()

	if len(seeds) > 0 {
		return reportBatch(d.Run(ctx, seeds, stages))
	}
	return reportBatch(d.Advance(ctx, stages))
}

func addSeedFlags(cmd *cobra.Command) {
	cmd.Flags().String("seeds", "", "file of seed titles (one per line, or CSV)")
	cmd.Flags().String("column", "", "CSV column holding the titles (default: first column)")
}

// seedTitles merges positional titles with those read from --seeds.
func seedTitles(cmd *cobra.Command, args []string) ([]string, error) {
	seeds := append([]string(nil), args...)
	if path, _ := cmd.Flags().GetString("seeds"); path != "" {
		column, _ := cmd.Flags().GetString("column")
		fromFile, err := acquire.ReadSeedsFile(path, column)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, fromFile...)
	}
	return acquire.Dedupe(seeds), nil
}
