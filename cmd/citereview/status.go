// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citereview/internal/ledger"
	"github.com/pdiddy/citereview/internal/report"
	"github.com/pdiddy/citereview/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how far each seed has progressed",
	Long: `Status probes every seed directory and prints its stage and counts. The
stage always comes from the files on disk. When a run ledger exists, the
most recent run is summarized as well.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	items, err := corpus().Items()
	if err != nil {
		return err
	}
	states := make([]types.ItemState, 0, len(items))
	for _, it := range items {
		states = append(states, it.Snapshot())
	}
	if err := report.WriteStatus(os.Stdout, states); err != nil {
		return err
	}

	if _, err := os.Stat(ledger.Path(cfg.CorpusDir)); err != nil {
		return nil
	}
	store, err := ledger.Open(cfg.CorpusDir)
	if err != nil {
		return err
	}
	defer store.Close()
	run, ok, err := store.LastRun(cmd.Context())
	if err != nil || !ok {
		return err
	}
	finished := "unfinished"
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
	}
	fmt.Printf("last run %s at %s (%s): stages %s, %d items, %d advanced, %d failed\n",
		run.ID, run.StartedAt.Local().Format(time.DateTime), finished,
		strings.Join(run.Stages, ","), run.Counts.Items, run.Counts.Advanced, run.Counts.Failed)
	return nil
}
