// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze decides whether each accepted citing paper speaks favorably
// of the seed paper. Each document goes through three questions in order:
// the citation marker, the paragraphs carrying it, and their sentiment.
package analyze

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/citereview/internal/llm"
	"github.com/pdiddy/citereview/internal/metrics"
	"github.com/pdiddy/citereview/internal/textextract"
	"github.com/pdiddy/citereview/internal/workitem"
	"github.com/pdiddy/citereview/pkg/types"
)

// Analyzer runs context analysis over accepted documents.
type Analyzer struct {
	Oracle    *llm.Oracle
	Extractor textextract.Extractor
	Log       zerolog.Logger
	Metrics   *metrics.Recorder

	// CallTimeout bounds each extraction and LLM call; zero means no extra bound.
	CallTimeout time.Duration
}

// Analyze returns the context result for doc with respect to seedTitle. The
// decision fields (author, institution, publication) are left for the caller.
// Only context cancellation is returned as an error; every other failure
// becomes a negative result with Details set.
func (a *Analyzer) Analyze(ctx context.Context, doc workitem.Document, seedTitle string) (types.CitationContextResult, error) {
	res := types.CitationContextResult{PaperTitle: doc.Name, PositiveComments: []string{}}
	log := a.Log.With().Str("stage", "analyze").Str("paper", doc.Name).Logger()

	text, err := a.extract(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		log.Warn().Err(err).Msg("text extraction failed")
		res.Details = fmt.Sprintf("Text extraction failed: %v", err)
		return res, nil
	}

	data := promptData{Title: seedTitle}

	var mr markerReply
	v := a.ask(ctx, markerPrompt, data, text, &mr)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	data.Marker = mr.Marker()
	if !v.Ok() || data.Marker == "" {
		res.Details = "Citation index not found: " + explain(v, mr.Explanation)
		log.Info().Str("details", res.Details).Msg("no citation marker")
		return res, nil
	}
	res.Marker = data.Marker

	paragraphs, explanation := a.paragraphs(ctx, data, text, log)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if len(paragraphs) == 0 {
		res.Details = "No paragraphs found with citation: " + explanation
		log.Info().Str("marker", data.Marker).Msg("no citing paragraphs")
		return res, nil
	}
	data.Paragraphs = strings.Join(paragraphs, "\n\n")

	var sr sentimentReply
	v = a.ask(ctx, sentimentPrompt, data, "", &sr)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	switch {
	case v.Ok():
		res.HasPositiveComments = sr.HasPositive
		if sr.Comments != nil {
			res.PositiveComments = sr.Comments
		}
		if !sr.HasPositive {
			res.Details = sr.Explanation
		}
	case v.Err == nil:
		// Free-text reply: keyword check plus any quoted sentences.
		res.HasPositiveComments = positiveText(v.Raw)
		if quoted := llm.QuotedStrings(v.Raw); len(quoted) > 0 {
			res.PositiveComments = quoted
		}
		res.Details = "Sentiment reply was not JSON"
	default:
		res.Details = fmt.Sprintf("Sentiment analysis failed: %v", v.Err)
	}

	log.Info().Str("marker", res.Marker).Bool("positive", res.HasPositiveComments).
		Int("comments", len(res.PositiveComments)).Msg("analyzed")
	return res, nil
}

// negations mark a free-text sentiment reply as negative even though it
// mentions "positive".
var negations = []string{"not positive", "no positive", "non-positive", "isn't positive", "without positive"}

// positiveText reads a sentiment verdict out of a reply that is not JSON.
func positiveText(reply string) bool {
	lower := strings.ToLower(reply)
	for _, n := range negations {
		if strings.Contains(lower, n) {
			return false
		}
	}
	return strings.Contains(lower, "true") || strings.Contains(lower, "positive")
}

// paragraphs asks for the citing paragraphs, falling back to a literal scan
// of the main text when the reply cannot be decoded.
func (a *Analyzer) paragraphs(ctx context.Context, data promptData, text string, log zerolog.Logger) ([]string, string) {
	var pr paragraphsReply
	v := a.ask(ctx, paragraphsPrompt, data, text, &pr)
	if v.Ok() {
		return nonEmpty(pr.Paragraphs), pr.Explanation
	}
	if ctx.Err() != nil {
		return nil, ""
	}
	found := scanParagraphs(text, data.Marker)
	log.Info().Str("marker", data.Marker).Int("paragraphs", len(found)).Msg("paragraph reply unusable, scanned text")
	return found, explain(v, "")
}

func (a *Analyzer) extract(ctx context.Context, doc workitem.Document) (string, error) {
	callCtx, cancel := a.callContext(ctx)
	defer cancel()
	text, err := a.Extractor.Extract(callCtx, doc.Path)
	a.Metrics.Call("text_extraction", err)
	return text, err
}

func (a *Analyzer) ask(ctx context.Context, spec llm.PromptSpec, data promptData, text string, out any) llm.Verdict {
	callCtx, cancel := a.callContext(ctx)
	defer cancel()
	return a.Oracle.Ask(callCtx, spec, data, text, out)
}

func (a *Analyzer) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.CallTimeout > 0 {
		return context.WithTimeout(ctx, a.CallTimeout)
	}
	return context.WithCancel(ctx)
}

// explain picks the model's explanation, or describes why there is none.
func explain(v llm.Verdict, explanation string) string {
	switch {
	case v.Err != nil:
		return v.Err.Error()
	case !v.Ok():
		return "unparseable reply"
	default:
		return explanation
	}
}

func nonEmpty(ss []string) []string {
	var out []string
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// ItemResult counts the outcome of analyzing one WorkItem.
type ItemResult struct {
	Positive int
	Negative int
	// Skipped is set when the WorkItem already has positive_comments.csv.
	Skipped bool
}

// AnalyzeItem analyzes every accepted document of item, in the order of
// filtered_papers.json, and writes positive_comments.csv with every result.
// It does nothing when the CSV already exists or nothing was accepted.
func (a *Analyzer) AnalyzeItem(ctx context.Context, item workitem.Item) (ItemResult, error) {
	var res ItemResult
	if item.Has(workitem.CommentsFile) {
		res.Skipped = true
		return res, nil
	}
	decisions, err := item.ReadDecisions()
	if err != nil {
		return res, err
	}
	if len(decisions) == 0 {
		return res, nil
	}
	seedTitle, err := item.Title()
	if err != nil {
		return res, err
	}

	results := make([]types.CitationContextResult, 0, len(decisions))
	for _, dec := range decisions {
		r, err := a.Analyze(ctx, item.Document(dec.File), seedTitle)
		if err != nil {
			return res, err
		}
		r.Author = dec.Author
		r.Institution = dec.Institution
		r.Publication = dec.Publication
		if r.HasPositiveComments {
			res.Positive++
		} else {
			res.Negative++
		}
		results = append(results, r)
	}

	if err := item.WriteResults(seedTitle, results); err != nil {
		return res, fmt.Errorf("writing %s: %w", workitem.CommentsFile, err)
	}
	a.Log.Info().Str("stage", "analyze").Str("item", item.Slug).
		Int("positive", res.Positive).Int("negative", res.Negative).Msg("analyzed")
	return res, nil
}
