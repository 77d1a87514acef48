// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citereview/internal/pipeline"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire [seed titles...]",
	Short: "List citing papers and download their open-access full texts",
	Long: `Acquire looks each seed title up in Semantic Scholar, lists up to
acquisition.citation_limit citing papers, and downloads every full text that
arXiv or OpenAlex can provide. Metadata goes to publish_info.json, titles
without a full text to unavailable.txt. Seeds that failed or are missing full
texts are listed in not_full_list.txt at the corpus root.

Without titles, acquire retries every seed in the corpus that has no metadata yet.`,
	RunE: runAcquire,
}

func init() {
	acquireCmd.Flags().Int("citation-limit", 0, "maximum citing papers per seed (default 1000)")
	acquireCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")
	addSeedFlags(acquireCmd)

	rootCmd.AddCommand(acquireCmd)
}

func runAcquire(cmd *cobra.Command, args []string) error {
	if limit, _ := cmd.Flags().GetInt("citation-limit"); limit > 0 {
		cfg.Acquisition.CitationLimit = limit
	}
	if delay, _ := cmd.Flags().GetDuration("delay"); delay > 0 {
		cfg.Acquisition.DownloadDelay = delay
	}
	seeds, err := seedTitles(cmd, args)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		items, err := corpus().Items()
		if err != nil || len(items) == 0 {
			return fmt.Errorf("provide seed titles, --seeds FILE, or a corpus with existing seeds")
		}
	}
	return drive(cmd, seeds, pipeline.Only(pipeline.StageAcquire))
}
