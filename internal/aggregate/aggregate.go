// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate builds the corpus-wide tables from per-WorkItem results.
// Both tables are rebuilt from scratch on every run.
package aggregate

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/citereview/internal/workitem"
	"github.com/pdiddy/citereview/pkg/types"
)

var (
	summaryHeader     = []string{"target_title", "paper_title", "author", "institution", "publication", "positive_comments"}
	unavailableHeader = []string{"cited_title", "title"}
)

// Summary counts what one aggregation pass saw.
type Summary struct {
	Items int
	Rows  int
	// Skipped lists WorkItems whose results could not be read.
	Skipped []string
}

// HasFailures reports whether any WorkItem was skipped.
func (s Summary) HasFailures() bool {
	return len(s.Skipped) > 0
}

// Rows returns the positive rows of every analyzed WorkItem, in slug order
// and then file order, each tagged with the WorkItem's seed title.
func Rows(corpus workitem.Corpus, log zerolog.Logger) ([]types.SummaryRow, Summary, error) {
	var sum Summary
	items, err := corpus.Items()
	if err != nil {
		return nil, sum, err
	}
	var rows []types.SummaryRow
	for _, it := range items {
		if !it.Has(workitem.CommentsFile) {
			continue
		}
		title, err := it.Title()
		if err != nil {
			log.Warn().Err(err).Str("item", it.Slug).Msg("skipping item without title")
			sum.Skipped = append(sum.Skipped, it.Slug)
			continue
		}
		results, err := it.ReadResults()
		if err != nil {
			log.Warn().Err(err).Str("item", it.Slug).Msg("skipping unreadable results")
			sum.Skipped = append(sum.Skipped, it.Slug)
			continue
		}
		sum.Items++
		for _, r := range results {
			if !r.HasPositiveComments {
				continue
			}
			rows = append(rows, types.SummaryRow{
				TargetTitle:      title,
				PaperTitle:       r.PaperTitle,
				Author:           r.Author,
				Institution:      r.Institution,
				Publication:      r.Publication,
				PositiveComments: r.PositiveComments,
			})
		}
	}
	sum.Rows = len(rows)
	return rows, sum, nil
}

// Aggregate rewrites final.csv at the corpus root.
func Aggregate(corpus workitem.Corpus, log zerolog.Logger) (Summary, error) {
	rows, sum, err := Rows(corpus, log)
	if err != nil {
		return sum, err
	}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		comments := r.PositiveComments
		if comments == nil {
			comments = []string{}
		}
		encoded, err := json.Marshal(comments)
		if err != nil {
			return sum, fmt.Errorf("encoding comments for %q: %w", r.PaperTitle, err)
		}
		records = append(records, []string{
			r.TargetTitle, r.PaperTitle, r.Author, r.Institution, r.Publication, string(encoded),
		})
	}
	if err := writeCSV(corpus, workitem.SummaryFile, summaryHeader, records); err != nil {
		return sum, err
	}
	log.Info().Int("items", sum.Items).Int("rows", sum.Rows).Msg("wrote summary table")
	return sum, nil
}

// UnavailableRows pairs each WorkItem's seed title with every citing paper
// listed in its unavailable.txt.
func UnavailableRows(corpus workitem.Corpus) ([]types.UnavailableRow, error) {
	items, err := corpus.Items()
	if err != nil {
		return nil, err
	}
	var rows []types.UnavailableRow
	for _, it := range items {
		titles, err := it.ReadUnavailable()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", it.Slug, err)
		}
		if len(titles) == 0 {
			continue
		}
		seed, err := it.Title()
		if err != nil {
			return nil, err
		}
		for _, t := range titles {
			rows = append(rows, types.UnavailableRow{CitedTitle: seed, Title: t})
		}
	}
	return rows, nil
}

// CollectUnavailable rewrites unavailable.csv at the corpus root and returns
// the number of rows.
func CollectUnavailable(corpus workitem.Corpus, log zerolog.Logger) (int, error) {
	rows, err := UnavailableRows(corpus)
	if err != nil {
		return 0, err
	}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{r.CitedTitle, r.Title})
	}
	if err := writeCSV(corpus, workitem.UnavailableTableFile, unavailableHeader, records); err != nil {
		return 0, err
	}
	log.Info().Int("rows", len(rows)).Msg("wrote unavailable table")
	return len(rows), nil
}

func writeCSV(corpus workitem.Corpus, name string, header []string, records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return corpus.WriteFile(name, buf.Bytes())
}
