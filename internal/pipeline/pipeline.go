// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives WorkItems through acquisition, classification and
// context analysis, then aggregates the corpus. A WorkItem's status is always
// probed from its artifacts, so a rerun resumes where the last one stopped
// and never regresses.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/citereview/internal/acquire"
	"github.com/pdiddy/citereview/internal/aggregate"
	"github.com/pdiddy/citereview/internal/analyze"
	"github.com/pdiddy/citereview/internal/classify"
	"github.com/pdiddy/citereview/internal/ledger"
	"github.com/pdiddy/citereview/internal/metrics"
	"github.com/pdiddy/citereview/internal/workitem"
	"github.com/pdiddy/citereview/pkg/types"
)

// Acquirer runs the acquisition stage on one WorkItem.
type Acquirer interface {
	AcquireItem(ctx context.Context, item workitem.Item) (acquire.Result, error)
}

// Classifier runs the classification stage on one WorkItem.
type Classifier interface {
	ClassifyItem(ctx context.Context, item workitem.Item) (classify.ItemResult, error)
}

// Analyzer runs the context-analysis stage on one WorkItem.
type Analyzer interface {
	AnalyzeItem(ctx context.Context, item workitem.Item) (analyze.ItemResult, error)
}

// Ledger records run history. *ledger.Store implements it.
type Ledger interface {
	BeginRun(ctx context.Context, stages []string) (ledger.Run, error)
	FinishRun(ctx context.Context, id uuid.UUID, counts ledger.RunCounts) error
	RecordTransition(ctx context.Context, runID uuid.UUID, tr ledger.Transition, state types.ItemState) error
}

// BatchResult holds the outcome of one driver run.
type BatchResult struct {
	Items    int
	Advanced int
	Failed   int
	// Created counts WorkItems made for new seeds.
	Created int
	// NotFull lists seeds whose acquisition failed or left documents unavailable.
	NotFull []string
	// Summary is set when the aggregate stage ran.
	Summary *aggregate.Summary
}

// Total returns the number of WorkItems visited.
func (r BatchResult) Total() int {
	return r.Items
}

// HasFailures reports whether any stage failed on any WorkItem.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Driver advances WorkItems. Stage implementations left nil are treated as
// not configured; selecting such a stage is an error.
type Driver struct {
	Corpus     workitem.Corpus
	Acquirer   Acquirer
	Classifier Classifier
	Analyzer   Analyzer
	Ledger     Ledger
	Metrics    *metrics.Recorder
	Log        zerolog.Logger

	// Workers is the number of WorkItems processed at once (default 1).
	Workers int
}

// Run creates a WorkItem for every seed that lacks one and advances the
// seeds' WorkItems through the selected stages.
func (d *Driver) Run(ctx context.Context, seeds []string, stages Stages) (BatchResult, error) {
	var res BatchResult
	var items []workitem.Item
	seen := map[string]bool{}
	for _, seed := range acquire.Dedupe(seeds) {
		it, created, err := d.Corpus.Create(seed)
		if err != nil {
			d.Log.Warn().Err(err).Str("seed", seed).Msg("cannot create work item")
			res.Failed++
			continue
		}
		if created {
			res.Created++
			d.Log.Info().Str("item", it.Slug).Str("seed", seed).Msg("created work item")
		}
		if seen[it.Slug] {
			continue
		}
		seen[it.Slug] = true
		items = append(items, it)
	}
	return d.process(ctx, items, stages, res)
}

// Advance moves every existing WorkItem in the corpus through the selected stages.
func (d *Driver) Advance(ctx context.Context, stages Stages) (BatchResult, error) {
	items, err := d.Corpus.Items()
	if err != nil {
		return BatchResult{}, err
	}
	return d.process(ctx, items, stages, BatchResult{})
}

func (d *Driver) process(ctx context.Context, items []workitem.Item, stages Stages, res BatchResult) (BatchResult, error) {
	if err := d.check(stages); err != nil {
		return res, err
	}
	start := time.Now()

	var runID uuid.UUID
	if d.Ledger != nil {
		run, err := d.Ledger.BeginRun(ctx, stages.Names())
		if err != nil {
			d.Log.Warn().Err(err).Msg("ledger unavailable, continuing without history")
		} else {
			runID = run.ID
		}
	}

	workers := d.Workers
	if workers <= 0 {
		workers = 1
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(workers)
	for _, it := range items {
		if ctx.Err() != nil {
			break
		}
		it := it
		g.Go(func() error {
			out := d.advanceItem(ctx, runID, it, stages)
			mu.Lock()
			defer mu.Unlock()
			res.Items++
			res.Advanced += out.advanced
			if out.failed {
				res.Failed++
			}
			if out.notFull != "" {
				res.NotFull = append(res.NotFull, out.notFull)
			}
			return nil
		})
	}
	g.Wait()

	if stages.Has(StageAcquire) {
		if err := d.Corpus.WriteNotFullList(res.NotFull); err != nil {
			d.Log.Warn().Err(err).Msg("cannot write not-fully-acquired list")
		}
	}

	if stages.Has(StageAggregate) && ctx.Err() == nil {
		sum, err := aggregate.Aggregate(d.Corpus, d.Log)
		if err != nil {
			d.Log.Error().Err(err).Msg("aggregation failed")
			d.Metrics.Failed(string(StageAggregate))
			res.Failed++
		} else {
			res.Summary = &sum
			d.Metrics.Advanced(string(StageAggregate))
		}
		if _, err := aggregate.CollectUnavailable(d.Corpus, d.Log); err != nil {
			d.Log.Error().Err(err).Msg("collecting unavailable papers failed")
		}
	}

	d.recordGauges()
	d.Metrics.SetRunDuration(time.Since(start).Seconds())
	if d.Ledger != nil && runID != uuid.Nil {
		counts := ledger.RunCounts{Items: res.Items, Advanced: res.Advanced, Failed: res.Failed}
		if err := d.Ledger.FinishRun(context.WithoutCancel(ctx), runID, counts); err != nil {
			d.Log.Warn().Err(err).Msg("cannot record run end")
		}
	}

	d.Log.Info().Int("items", res.Items).Int("created", res.Created).Int("advanced", res.Advanced).
		Int("failed", res.Failed).Int("not_full", len(res.NotFull)).Dur("elapsed", time.Since(start)).
		Msg("run finished")
	return res, ctx.Err()
}

func (d *Driver) check(stages Stages) error {
	switch {
	case stages.Has(StageAcquire) && d.Acquirer == nil:
		return fmt.Errorf("stage %s selected but no acquirer configured", StageAcquire)
	case stages.Has(StageClassify) && d.Classifier == nil:
		return fmt.Errorf("stage %s selected but no classifier configured", StageClassify)
	case stages.Has(StageAnalyze) && d.Analyzer == nil:
		return fmt.Errorf("stage %s selected but no analyzer configured", StageAnalyze)
	}
	return nil
}

type itemOutcome struct {
	advanced int
	failed   bool
	notFull  string
}

// advanceItem walks one WorkItem forward from its probed status. A stage that
// is not selected stops the walk, since later stages depend on its artifact.
func (d *Driver) advanceItem(ctx context.Context, runID uuid.UUID, it workitem.Item, stages Stages) itemOutcome {
	var out itemOutcome
	log := d.Log.With().Str("item", it.Slug).Logger()
	status := it.Probe()
	log.Debug().Str("status", status.String()).Msg("probed")

	for ctx.Err() == nil {
		var stage Stage
		var err error
		next := status + 1

		switch status {
		case types.StatusNew:
			if !stages.Has(StageAcquire) {
				return out
			}
			stage = StageAcquire
			var r acquire.Result
			r, err = d.Acquirer.AcquireItem(ctx, it)
			if err != nil || !r.Complete() {
				out.notFull, _ = it.Title()
			}
		case types.StatusAcquired:
			if !stages.Has(StageClassify) {
				return out
			}
			stage = StageClassify
			_, err = d.Classifier.ClassifyItem(ctx, it)
		case types.StatusClassified:
			if !stages.Has(StageAnalyze) {
				return out
			}
			if decisions, derr := it.ReadDecisions(); derr == nil && len(decisions) == 0 {
				log.Debug().Msg("nothing accepted, item is final")
				return out
			}
			stage = StageAnalyze
			_, err = d.Analyzer.AnalyzeItem(ctx, it)
		default:
			return out
		}

		if err == nil && it.Probe() < next {
			err = fmt.Errorf("%s finished without producing its artifact", stage)
		}
		d.record(ctx, runID, it, status, next, err)
		if err != nil {
			log.Warn().Err(err).Str("stage", string(stage)).Msg("stage failed")
			d.Metrics.Failed(string(stage))
			out.failed = true
			return out
		}
		d.Metrics.Advanced(string(stage))
		out.advanced++
		log.Info().Str("stage", string(stage)).Str("status", next.String()).Msg("advanced")
		status = next
	}
	return out
}

func (d *Driver) record(ctx context.Context, runID uuid.UUID, it workitem.Item, from, to types.Status, stageErr error) {
	st, err := it.SyncState()
	if err != nil {
		d.Log.Warn().Err(err).Str("item", it.Slug).Msg("cannot write state file")
	}
	if d.Ledger == nil || runID == uuid.Nil {
		return
	}
	tr := ledger.Transition{Slug: it.Slug, From: from, To: to}
	if stageErr != nil {
		tr.Error = stageErr.Error()
	}
	if err := d.Ledger.RecordTransition(context.WithoutCancel(ctx), runID, tr, st); err != nil {
		d.Log.Warn().Err(err).Str("item", it.Slug).Msg("cannot record transition")
	}
}

// recordGauges publishes the number of WorkItems at each status.
func (d *Driver) recordGauges() {
	if d.Metrics == nil {
		return
	}
	items, err := d.Corpus.Items()
	if err != nil {
		return
	}
	d.Metrics.SetItems(CountByStatus(items))
}

// CountByStatus probes every item and tallies statuses by name.
func CountByStatus(items []workitem.Item) map[string]int {
	counts := map[string]int{}
	for _, st := range []types.Status{types.StatusNew, types.StatusAcquired, types.StatusClassified, types.StatusAnalyzed} {
		counts[st.String()] = 0
	}
	for _, it := range items {
		counts[it.Probe().String()]++
	}
	return counts
}
