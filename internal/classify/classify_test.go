// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citereview/internal/llm"
	"github.com/pdiddy/citereview/internal/workitem"
	"github.com/pdiddy/citereview/pkg/types"
)

func strPtr(s string) *string { return &s }

// fakeExtractor returns fixed text, or err, and counts calls.
type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

// promptBackend answers by prompt: the institution question gets inst,
// the author question gets author.
type promptBackend struct {
	inst    string
	author  string
	systems []string
}

func (b *promptBackend) Chat(_ context.Context, system, _ string) (string, error) {
	b.systems = append(b.systems, system)
	if strings.Contains(system, "influential institutions") {
		return b.inst, nil
	}
	return b.author, nil
}

func newClassifier(ext *fakeExtractor, b *promptBackend) *Classifier {
	return &Classifier{
		Rules:     types.DefaultRules(),
		Oracle:    &llm.Oracle{Backend: b, Log: zerolog.Nop()},
		Extractor: ext,
		Log:       zerolog.Nop(),
	}
}

const negative = `{"has_influential_institution_author": false, "has_influential_author": false, "name": "", "institution": "", "explanation": "none"}`

var doc = workitem.Document{Name: "paper.pdf", Path: "/nonexistent/paper.pdf"}

func TestExcludedAuthorWinsOverVenue(t *testing.T) {
	ext := &fakeExtractor{text: "body"}
	b := &promptBackend{}
	c := newClassifier(ext, b)

	rec := types.CitationRecord{Title: "P", Authors: []string{"A. One", "gang pan"}, Publication: strPtr("Nature")}
	dec, err := c.Classify(context.Background(), doc, rec)
	require.NoError(t, err)
	assert.Nil(t, dec)
	assert.Zero(t, ext.calls, "no extraction for excluded authors")
	assert.Empty(t, b.systems, "no llm call for excluded authors")
}

func TestExcludedAffiliation(t *testing.T) {
	ext := &fakeExtractor{text: "body"}
	c := newClassifier(ext, &promptBackend{})
	c.Rules.ExcludeInstitutions = []string{"Example Institute"}

	withAff := types.CitationRecord{Title: "P", Authors: []string{"X"}, Publication: strPtr("Nature"), Affiliations: []string{"example institute of tech"}}
	dec, err := c.Classify(context.Background(), doc, withAff)
	require.NoError(t, err)
	assert.Nil(t, dec)

	noAff := types.CitationRecord{Title: "P", Authors: []string{"X"}, Publication: strPtr("Nature")}
	dec, err = c.Classify(context.Background(), doc, noAff)
	require.NoError(t, err)
	require.NotNil(t, dec, "absent affiliations pass through")
}

func TestVenueAcceptsWithoutLLM(t *testing.T) {
	ext := &fakeExtractor{text: "body"}
	b := &promptBackend{}
	c := newClassifier(ext, b)

	rec := types.CitationRecord{Title: "P", Authors: []string{"First", "Middle", "Last"}, Publication: strPtr("Nature Communications")}
	dec, err := c.Classify(context.Background(), doc, rec)
	require.NoError(t, err)
	require.NotNil(t, dec)
	assert.Equal(t, types.InclusionDecision{
		File:        "paper.pdf",
		Institution: UnknownInstitution,
		Author:      "Last",
		Publication: "Nature Communications",
	}, *dec)
	assert.Empty(t, b.systems)
}

func TestExtractionFailureRejects(t *testing.T) {
	ext := &fakeExtractor{err: errors.New("encrypted")}
	b := &promptBackend{}
	c := newClassifier(ext, b)

	rec := types.CitationRecord{Title: "P", Authors: []string{"X"}, Publication: strPtr("Science")}
	dec, err := c.Classify(context.Background(), doc, rec)
	require.NoError(t, err)
	assert.Nil(t, dec)
	assert.Empty(t, b.systems)
}

func TestInstitutionAccepts(t *testing.T) {
	b := &promptBackend{inst: `{"has_influential_institution_author": true, "name": "J. Dean", "institution": "Google", "explanation": "affiliation"}`}
	c := newClassifier(&fakeExtractor{text: "body"}, b)

	rec := types.CitationRecord{Title: "P", Authors: []string{"A", "J. Dean"}, Publication: strPtr("ICML")}
	dec, err := c.Classify(context.Background(), doc, rec)
	require.NoError(t, err)
	require.NotNil(t, dec)
	assert.Equal(t, "Google", dec.Institution)
	assert.Equal(t, "J. Dean", dec.Author)
	assert.Equal(t, "ICML", dec.Publication)
	assert.Len(t, b.systems, 1, "author check skipped after institution accept")
	assert.Contains(t, b.systems[0], "Nvidia")
	assert.Contains(t, b.systems[0], "Zhejiang University")
}

func TestAuthorAccepts(t *testing.T) {
	b := &promptBackend{
		inst:   negative,
		author: "Sure! ```json\n{\"has_influential_author\": true, \"name\": \"Y. LeCun\", \"institution\": \"NYU\", \"explanation\": \"lab head\"}\n```",
	}
	c := newClassifier(&fakeExtractor{text: "body"}, b)

	rec := types.CitationRecord{Title: "P", Authors: []string{"A", "B", "C", "D", "Y. LeCun"}}
	dec, err := c.Classify(context.Background(), doc, rec)
	require.NoError(t, err)
	require.NotNil(t, dec)
	assert.Equal(t, "Y. LeCun", dec.Author)
	assert.Equal(t, "NYU", dec.Institution)
	assert.Equal(t, "", dec.Publication)
	require.Len(t, b.systems, 2)
	assert.Contains(t, b.systems[1], "Only consider these authors: C, D, Y. LeCun")
}

func TestMalformedRepliesReject(t *testing.T) {
	b := &promptBackend{inst: "I cannot tell.", author: "no idea"}
	c := newClassifier(&fakeExtractor{text: "body"}, b)

	dec, err := c.Classify(context.Background(), doc, types.CitationRecord{Title: "P", Authors: []string{"X"}})
	require.NoError(t, err)
	assert.Nil(t, dec)
	assert.Len(t, b.systems, 2)
}

func TestClassifyItem(t *testing.T) {
	corpus := workitem.Corpus{Root: t.TempDir()}
	item, _, err := corpus.Create("Seed Paper")
	require.NoError(t, err)

	records := []types.CitationRecord{
		{Title: "Zeta Venue Paper", Authors: []string{"A", "Z. Last"}, Publication: strPtr("Science"), Document: "Zeta_Venue_Paper.pdf"},
		{Title: "No Full Text", Authors: []string{"B"}, Publication: strPtr("Nature")},
		{Title: "Alpha Venue Paper", Authors: []string{"C. Last"}, Publication: strPtr("Cell")},
		{Title: "Plain Paper", Authors: []string{"D"}},
	}
	require.NoError(t, item.WriteRecords(records))
	for _, name := range []string{"Zeta_Venue_Paper.pdf", "Alpha_Venue_Paper.pdf", "Plain_Paper.pdf"} {
		require.NoError(t, os.WriteFile(item.Path(name), []byte("%PDF"), 0o644))
	}

	c := newClassifier(&fakeExtractor{text: "body"}, &promptBackend{inst: negative, author: negative})
	res, err := c.ClassifyItem(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, ItemResult{Accepted: 2, Rejected: 1, Missing: 1}, res)
	assert.Equal(t, 4, res.Total())

	got, err := item.ReadDecisions()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Zeta_Venue_Paper.pdf", got[0].File, "record order preserved")
	assert.Equal(t, "Alpha_Venue_Paper.pdf", got[1].File)
	assert.Equal(t, types.StatusClassified, item.Probe())
}

func TestClassifyItemUsesDocumentOnce(t *testing.T) {
	corpus := workitem.Corpus{Root: t.TempDir()}
	item, _, err := corpus.Create("Seed Paper")
	require.NoError(t, err)

	records := []types.CitationRecord{
		{Title: "Spiking Nets: A Survey", Authors: []string{"A. Last"}, Publication: strPtr("Nature"), Document: "Spiking_Nets_A_Survey.pdf"},
		{Title: "Spiking Nets A Survey", Authors: []string{"B. Last"}, Publication: strPtr("Nature")},
	}
	require.NoError(t, item.WriteRecords(records))
	require.NoError(t, os.WriteFile(item.Path("Spiking_Nets_A_Survey.pdf"), []byte("%PDF"), 0o644))

	c := newClassifier(&fakeExtractor{text: "body"}, &promptBackend{inst: negative, author: negative})
	res, err := c.ClassifyItem(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, ItemResult{Accepted: 1, Missing: 1}, res)

	got, err := item.ReadDecisions()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A. Last", got[0].Author)
}

func TestClassifyItemWritesEmptyList(t *testing.T) {
	corpus := workitem.Corpus{Root: t.TempDir()}
	item, _, err := corpus.Create("Seed Paper")
	require.NoError(t, err)
	require.NoError(t, item.WriteRecords([]types.CitationRecord{{Title: "Plain", Authors: []string{"gang pan"}}}))
	require.NoError(t, os.WriteFile(item.Path("Plain.pdf"), []byte("%PDF"), 0o644))

	c := newClassifier(&fakeExtractor{text: "body"}, &promptBackend{})
	_, err = c.ClassifyItem(context.Background(), item)
	require.NoError(t, err)

	data, err := os.ReadFile(item.Path(workitem.FilteredFile))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestRuleHelpers(t *testing.T) {
	rules := types.DefaultRules()
	_, ok := influentialVenue(rules, types.CitationRecord{Publication: strPtr("IEEE Transactions on Cellular Automata")})
	assert.True(t, ok, "substring matching keeps false positives")

	_, ok = influentialVenue(rules, types.CitationRecord{})
	assert.False(t, ok)

	assert.Equal(t, []string{"b", "c", "d"}, seniorAuthors([]string{"a", "b", "c", "d"}, 3))
	assert.Equal(t, []string{"a"}, seniorAuthors([]string{"a"}, 3))
}
