// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/citereview/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Find positive comments about each seed in its accepted citing papers",
	Long: `Analyze reads each accepted citing paper of every classified seed, finds
how the seed is cited, pulls out the paragraphs carrying that citation and asks
the language model whether they speak positively of the seed. Results go to
positive_comments.csv. Seeds that already have one are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return drive(cmd, nil, pipeline.Only(pipeline.StageAnalyze))
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
