// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"encoding/csv"
	"fmt"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citereview/internal/workitem"
	"github.com/pdiddy/citereview/pkg/types"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

// seedItem creates an analyzed WorkItem with positive results[i] == true for
// each true entry in positive.
func seedItem(t *testing.T, c workitem.Corpus, title string, positive ...bool) {
	t.Helper()
	it, _, err := c.Create(title)
	require.NoError(t, err)
	var results []types.CitationContextResult
	for i, p := range positive {
		r := types.CitationContextResult{PaperTitle: fmt.Sprintf("%s citing %d.pdf", title, i)}
		if p {
			r.HasPositiveComments = true
			r.PositiveComments = []string{fmt.Sprintf("comment %d, with comma", i)}
		}
		results = append(results, r)
	}
	require.NoError(t, it.WriteResults(title, results))
}

func TestAggregateCountsEveryPositiveRow(t *testing.T) {
	c := workitem.Corpus{Root: t.TempDir()}
	seedItem(t, c, "Beta seed", true, false, true)
	seedItem(t, c, "Alpha seed", false, true)
	seedItem(t, c, "Gamma seed", false)
	_, _, err := c.Create("Unanalyzed seed")
	require.NoError(t, err)

	sum, err := Aggregate(c, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Items)
	assert.Equal(t, 3, sum.Rows)
	assert.False(t, sum.HasFailures())

	rows := readCSV(t, c.Path(workitem.SummaryFile))
	require.Len(t, rows, 4)
	assert.Equal(t, summaryHeader, rows[0])
	assert.Equal(t, []string{"Alpha seed", "Alpha seed citing 1.pdf"}, rows[1][:2])
	assert.Equal(t, []string{"Beta seed", "Beta seed citing 0.pdf"}, rows[2][:2])
	assert.Equal(t, []string{"Beta seed", "Beta seed citing 2.pdf"}, rows[3][:2])
	assert.Equal(t, `["comment 2, with comma"]`, rows[3][5])
}

func TestAggregateRebuildsFromScratch(t *testing.T) {
	c := workitem.Corpus{Root: t.TempDir()}
	seedItem(t, c, "Alpha seed", true)
	_, err := Aggregate(c, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(c.ForTitle("Alpha seed").Dir))
	sum, err := Aggregate(c, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, sum.Rows)
	assert.Len(t, readCSV(t, c.Path(workitem.SummaryFile)), 1)
}

func TestCollectUnavailable(t *testing.T) {
	c := workitem.Corpus{Root: t.TempDir()}
	b, _, err := c.Create("Beta seed")
	require.NoError(t, err)
	require.NoError(t, b.WriteUnavailable([]string{"Missing one", "Missing two"}))
	a, _, err := c.Create("Alpha seed")
	require.NoError(t, err)
	require.NoError(t, a.WriteUnavailable([]string{"Gone"}))
	_, _, err = c.Create("Complete seed")
	require.NoError(t, err)

	n, err := CollectUnavailable(c, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, [][]string{
		{"cited_title", "title"},
		{"Alpha seed", "Gone"},
		{"Beta seed", "Missing one"},
		{"Beta seed", "Missing two"},
	}, readCSV(t, c.Path(workitem.UnavailableTableFile)))
}
