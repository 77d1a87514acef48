// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"os"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citereview/internal/acquire"
	"github.com/pdiddy/citereview/internal/analyze"
	"github.com/pdiddy/citereview/internal/classify"
	"github.com/pdiddy/citereview/internal/ledger"
	"github.com/pdiddy/citereview/internal/metrics"
	"github.com/pdiddy/citereview/internal/workitem"
	"github.com/pdiddy/citereview/pkg/types"
)

func strPtr(s string) *string { return &s }

// fakeStages writes the artifacts each stage would, failing for seeds in fail.
type fakeStages struct {
	acquired   atomic.Int32
	classified atomic.Int32
	analyzed   atomic.Int32
	fail       map[string]bool
	incomplete map[string]bool
	accept     bool
}

func (f *fakeStages) AcquireItem(_ context.Context, it workitem.Item) (acquire.Result, error) {
	f.acquired.Add(1)
	title, _ := it.Title()
	if f.fail[title] {
		return acquire.Result{}, acquire.ErrNoCitations
	}
	res := acquire.Result{Records: []types.CitationRecord{{Title: "Citing", Authors: []string{"A"}, Publication: strPtr("Nature")}}}
	if f.incomplete[title] {
		res.Unavailable = []string{"Missing"}
		if err := it.WriteUnavailable(res.Unavailable); err != nil {
			return res, err
		}
	}
	return res, it.WriteRecords(res.Records)
}

func (f *fakeStages) ClassifyItem(_ context.Context, it workitem.Item) (classify.ItemResult, error) {
	f.classified.Add(1)
	var decisions []types.InclusionDecision
	if f.accept {
		decisions = append(decisions, types.InclusionDecision{File: "Citing.pdf", Institution: "not known", Author: "A", Publication: "Nature"})
	}
	return classify.ItemResult{Accepted: len(decisions)}, it.WriteDecisions(decisions)
}

func (f *fakeStages) AnalyzeItem(_ context.Context, it workitem.Item) (analyze.ItemResult, error) {
	f.analyzed.Add(1)
	title, _ := it.Title()
	results := []types.CitationContextResult{{PaperTitle: "Citing.pdf", HasPositiveComments: true, PositiveComments: []string{"good"}}}
	return analyze.ItemResult{Positive: 1}, it.WriteResults(title, results)
}

func newDriver(t *testing.T, f *fakeStages) *Driver {
	t.Helper()
	return &Driver{
		Corpus:     workitem.Corpus{Root: t.TempDir()},
		Acquirer:   f,
		Classifier: f,
		Analyzer:   f,
		Metrics:    metrics.New(),
		Log:        zerolog.Nop(),
	}
}

func TestRunAllStages(t *testing.T) {
	f := &fakeStages{accept: true}
	d := newDriver(t, f)

	res, err := d.Run(context.Background(), []string{"Seed One", "Seed Two", "Seed One"}, Only(AllStages...))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Items)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 6, res.Advanced)
	assert.False(t, res.HasFailures())
	require.NotNil(t, res.Summary)
	assert.Equal(t, 2, res.Summary.Rows)

	for _, title := range []string{"Seed One", "Seed Two"} {
		it := d.Corpus.ForTitle(title)
		assert.Equal(t, types.StatusAnalyzed, it.Probe())
		st, err := it.ReadState()
		require.NoError(t, err)
		assert.Equal(t, types.StatusAnalyzed, st.Status)
	}
	assert.FileExists(t, d.Corpus.Path(workitem.SummaryFile))
	assert.FileExists(t, d.Corpus.Path(workitem.UnavailableTableFile))
}

func TestClassifiedItemIsNeverReacquired(t *testing.T) {
	f := &fakeStages{}
	d := newDriver(t, f)

	_, err := d.Run(context.Background(), []string{"Seed"}, Only(StageAcquire, StageClassify))
	require.NoError(t, err)
	require.Equal(t, types.StatusClassified, d.Corpus.ForTitle("Seed").Probe())
	require.EqualValues(t, 1, f.acquired.Load())

	res, err := d.Run(context.Background(), []string{"Seed"}, Only(AllStages...))
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.acquired.Load(), "acquisition not rerun")
	assert.EqualValues(t, 1, f.classified.Load(), "classification not rerun")
	assert.EqualValues(t, 0, f.analyzed.Load(), "empty inclusion list is final")
	assert.Zero(t, res.Advanced)
	assert.Equal(t, types.StatusClassified, d.Corpus.ForTitle("Seed").Probe())
}

func TestAcquisitionFailureLeavesItemNew(t *testing.T) {
	f := &fakeStages{fail: map[string]bool{"Broken seed": true}, incomplete: map[string]bool{"Partial seed": true}}
	d := newDriver(t, f)

	res, err := d.Run(context.Background(), []string{"Broken seed", "Partial seed", "Good seed"}, Only(StageAcquire))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Advanced)
	assert.ElementsMatch(t, []string{"Broken seed", "Partial seed"}, res.NotFull)

	assert.Equal(t, types.StatusNew, d.Corpus.ForTitle("Broken seed").Probe())
	assert.Equal(t, types.StatusAcquired, d.Corpus.ForTitle("Partial seed").Probe())
	assert.Equal(t, types.StatusAcquired, d.Corpus.ForTitle("Good seed").Probe())

	data, err := os.ReadFile(d.Corpus.Path(workitem.NotFullListFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Broken seed\n")
	assert.Contains(t, string(data), "Partial seed\n")
}

func TestAdvanceWithWorkers(t *testing.T) {
	f := &fakeStages{accept: true}
	d := newDriver(t, f)
	d.Workers = 4

	seeds := []string{"a seed", "b seed", "c seed", "d seed", "e seed", "f seed"}
	for _, s := range seeds {
		_, _, err := d.Corpus.Create(s)
		require.NoError(t, err)
	}

	res, err := d.Advance(context.Background(), Only(StageAcquire, StageClassify, StageAnalyze))
	require.NoError(t, err)
	assert.Equal(t, len(seeds), res.Items)
	assert.Equal(t, 3*len(seeds), res.Advanced)
	assert.Nil(t, res.Summary)
	assert.EqualValues(t, len(seeds), f.analyzed.Load())
}

func TestStageNotSelectedStopsWalk(t *testing.T) {
	f := &fakeStages{accept: true}
	d := newDriver(t, f)

	_, err := d.Run(context.Background(), []string{"Seed"}, Only(StageClassify, StageAnalyze))
	require.NoError(t, err)
	assert.EqualValues(t, 0, f.classified.Load(), "cannot classify before acquisition")
	assert.Equal(t, types.StatusNew, d.Corpus.ForTitle("Seed").Probe())
}

func TestMissingStageImplementation(t *testing.T) {
	d := &Driver{Corpus: workitem.Corpus{Root: t.TempDir()}, Log: zerolog.Nop()}
	_, err := d.Advance(context.Background(), Only(StageClassify))
	require.Error(t, err)
}

func TestLedgerRecordsTransitions(t *testing.T) {
	f := &fakeStages{fail: map[string]bool{"Broken": true}}
	d := newDriver(t, f)
	store, err := ledger.Open(d.Corpus.Root)
	require.NoError(t, err)
	defer store.Close()
	d.Ledger = store

	_, err = d.Run(context.Background(), []string{"Broken", "Fine"}, Only(StageAcquire))
	require.NoError(t, err)

	run, ok, err := store.LastRun(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ledger.RunCounts{Items: 2, Advanced: 1, Failed: 1}, run.Counts)

	trs, err := store.Transitions(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Len(t, trs, 2)

	msg, err := store.LastError(context.Background(), "Broken")
	require.NoError(t, err)
	assert.Contains(t, msg, acquire.ErrNoCitations.Error())
}

func TestParseStages(t *testing.T) {
	s, err := ParseStages([]string{"acquire,classify"})
	require.NoError(t, err)
	assert.Equal(t, []string{"acquire", "classify"}, s.Names())

	s, err = ParseStages(nil)
	require.NoError(t, err)
	assert.Len(t, s, len(AllStages))

	s, err = ParseStages([]string{"ALL"})
	require.NoError(t, err)
	assert.True(t, s.Has(StageAggregate))

	_, err = ParseStages([]string{"download"})
	assert.Error(t, err)
}

func TestCountByStatus(t *testing.T) {
	c := workitem.Corpus{Root: t.TempDir()}
	a, _, err := c.Create("a")
	require.NoError(t, err)
	require.NoError(t, a.WriteRecords([]types.CitationRecord{{Title: "x"}}))
	_, _, err = c.Create("b")
	require.NoError(t, err)

	items, err := c.Items()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"new": 1, "acquired": 1, "classified": 0, "analyzed": 0}, CountByStatus(items))
}

