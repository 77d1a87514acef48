// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citereview/internal/pipeline"
	"github.com/pdiddy/citereview/pkg/types"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Keep the citing papers from influential venues, institutions or authors",
	Long: `Classify applies the inclusion rules to every downloaded citing paper of
each acquired seed and writes filtered_papers.json. Exclusion lists are checked
first, then the venue list, then the language model is asked about
institutions and finally about the last authors.

With --rerun, seeds that were classified but not yet analyzed are classified
again, replacing their filtered_papers.json.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().Bool("rerun", false, "reclassify seeds already classified but not analyzed")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	stages := pipeline.Only(pipeline.StageClassify)
	rerun, _ := cmd.Flags().GetBool("rerun")
	if !rerun {
		return drive(cmd, nil, stages)
	}

	ctx := cmd.Context()
	oracle, err := newOracle()
	if err != nil {
		return err
	}
	c := newClassifier(oracle, newExtractor(ctx))
	items, err := corpus().Items()
	if err != nil {
		return err
	}
	failed := 0
	for _, it := range items {
		if it.Probe() != types.StatusClassified {
			continue
		}
		if _, err := c.ClassifyItem(ctx, it); err != nil {
			logger.Warn().Err(err).Str("item", it.Slug).Msg("reclassification failed")
			failed++
			continue
		}
		if _, err := it.SyncState(); err != nil {
			logger.Warn().Err(err).Str("item", it.Slug).Msg("cannot write state file")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d item(s) failed reclassification", failed)
	}
	return nil
}
