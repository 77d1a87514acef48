// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify decides which citing papers pass the influence filter.
// Rules run in a fixed order: author exclusion, affiliation exclusion,
// venue inclusion, institution inclusion (LLM), author-reputation
// inclusion (LLM). The first exclusion rejects; the first inclusion accepts.
package classify

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

// UnknownInstitution is recorded for venue-based acceptances.
const UnknownInstitution = "not known"

// seniorAuthorCount is how many trailing authors the reputation check considers.
const seniorAuthorCount = 3

// Rule names reported in logs.
const (
	RuleExcludedAuthor      = "excluded-author"
	RuleExcludedAffiliation = "excluded-affiliation"
	RuleUnreadable          = "unreadable"
	RuleVenue               = "influential-venue"
	RuleInstitution         = "influential-institution"
	RuleAuthor              = "influential-author"
	RuleNone                = "no-criterion"
)

// Classifier applies the inclusion rules to one citing paper at a time.
type Classifier struct {
	Rules     types.RulesConfig
	Oracle    *llm.Oracle
	Extractor textextract.Extractor
	Log       zerolog.Logger
	Metrics   *metrics.Recorder

	// CallTimeout bounds each extraction and LLM call; zero means no extra bound.
	CallTimeout time.Duration
}

// Classify returns the decision for rec whose full text is doc, or nil when
// the paper is rejected. Extraction failures and malformed LLM replies reject
// the paper; only context cancellation is returned as an error.
func (c *Classifier) Classify(ctx context.Context, doc workitem.Document, rec types.CitationRecord) (*types.InclusionDecision, error) {
	dec, rule, err := c.evaluate(ctx, doc, rec)
	ev := c.Log.Info().Str("stage", "classify").Str("paper", rec.Title).Str("rule", rule)
	if dec == nil {
		ev.Bool("accepted", false).Msg("rejected")
	} else {
		ev.Bool("accepted", true).Str("author", dec.Author).Str("institution", dec.Institution).Msg("accepted")
	}
	return dec, err
}

func (c *Classifier) evaluate(ctx context.Context, doc workitem.Document, rec types.CitationRecord) (*types.InclusionDecision, string, error) {
	if _, ok := excludedAuthor(c.Rules, rec); ok {
		return nil, RuleExcludedAuthor, nil
	}
	if _, ok := excludedAffiliation(c.Rules, rec); ok {
		return nil, RuleExcludedAffiliation, nil
	}

	text, err := c.extract(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, RuleUnreadable, ctx.Err()
		}
		c.Log.Warn().Err(err).Str("stage", "classify").Str("paper", rec.Title).Msg("text extraction failed")
		return nil, RuleUnreadable, nil
	}

	if venue, ok := influentialVenue(c.Rules, rec); ok {
		c.Log.Debug().Str("paper", rec.Title).Str("venue", venue).Msg("venue matched")
		return &types.InclusionDecision{
			File:        doc.Name,
			Institution: UnknownInstitution,
			Author:      rec.LastAuthor(),
			Publication: rec.Venue(),
		}, RuleVenue, nil
	}

	var inst institutionVerdict
	if v := c.ask(ctx, institutionPrompt, c.promptData(rec, c.Rules.InstitutionStandard), text, &inst); v.Ok() && inst.HasInfluential {
		return &types.InclusionDecision{
			File:        doc.Name,
			Institution: inst.Institution,
			Author:      inst.Name,
			Publication: rec.Venue(),
		}, RuleInstitution, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, RuleNone, err
	}

	var auth authorVerdict
	if v := c.ask(ctx, authorPrompt, c.promptData(rec, c.Rules.AuthorStandard), text, &auth); v.Ok() && auth.HasInfluential {
		return &types.InclusionDecision{
			File:        doc.Name,
			Institution: auth.Institution,
			Author:      auth.Name,
			Publication: rec.Venue(),
		}, RuleAuthor, nil
	}
	return nil, RuleNone, ctx.Err()
}

func (c *Classifier) promptData(rec types.CitationRecord, standard string) promptData {
	return promptData{
		Authors:              strings.Join(rec.Authors, ", "),
		SeniorAuthors:        strings.Join(seniorAuthors(rec.Authors, seniorAuthorCount), ", "),
		Institutions:         strings.Join(c.Rules.InfluentialInstitutions, ", "),
		ExcludedUniversities: strings.Join(c.Rules.ExcludedUniversities, ", "),
		Standard:             standard,
	}
}

func (c *Classifier) extract(ctx context.Context, doc workitem.Document) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	text, err := c.Extractor.Extract(callCtx, doc.Path)
	c.Metrics.Call("text_extraction", err)
	return text, err
}

func (c *Classifier) ask(ctx context.Context, spec llm.PromptSpec, data promptData, text string, out any) llm.Verdict {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	return c.Oracle.Ask(callCtx, spec, data, text, out)
}

func (c *Classifier) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.CallTimeout > 0 {
		return context.WithTimeout(ctx, c.CallTimeout)
	}
	return context.WithCancel(ctx)
}

// ItemResult counts the outcome of classifying one WorkItem.
type ItemResult struct {
	Accepted int
	Rejected int
	// Missing counts records without a downloaded full text.
	Missing int
}

// Total returns the number of records considered.
func (r ItemResult) Total() int {
	return r.Accepted + r.Rejected + r.Missing
}

// ClassifyItem classifies every record in the WorkItem's publish_info.json
// that has a downloaded document, in record order, and writes
// filtered_papers.json unconditionally. Each document is classified for the
// first record that matches it only.
func (c *Classifier) ClassifyItem(ctx context.Context, item workitem.Item) (ItemResult, error) {
	var res ItemResult
	records, err := item.ReadRecords()
	if err != nil {
		return res, err
	}
	docs, err := item.Documents()
	if err != nil {
		return res, fmt.Errorf("listing documents of %s: %w", item.Slug, err)
	}

	decisions := []types.InclusionDecision{}
	used := make(map[string]bool)
	for _, rec := range records {
		name := workitem.FindDocument(rec, docs)
		if name == "" || used[name] {
			res.Missing++
			continue
		}
		used[name] = true
		dec, err := c.Classify(ctx, item.Document(name), rec)
		if err != nil {
			return res, err
		}
		if dec == nil {
			res.Rejected++
			continue
		}
		res.Accepted++
		decisions = append(decisions, *dec)
	}

	if err := item.WriteDecisions(decisions); err != nil {
		return res, fmt.Errorf("writing %s: %w", workitem.FilteredFile, err)
	}
	c.Log.Info().Str("stage", "classify").Str("item", item.Slug).
		Int("accepted", res.Accepted).Int("rejected", res.Rejected).Int("missing", res.Missing).
		Msg("classified")
	return res, nil
}
