// Package acquire discovers the papers citing a seed and downloads their
// open-access full texts into the seed's WorkItem directory.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/citereview/internal/citation"
	"github.com/pdiddy/citereview/internal/metrics"
	"github.com/pdiddy/citereview/internal/workitem"
	"github.com/pdiddy/citereview/pkg/types"
)

// ErrNoCitations is returned when the seed resolves but nothing cites it.
var ErrNoCitations = errors.New("no citing papers found")

// Result is what one acquisition produced for a seed.
type Result struct {
	Records     []types.CitationRecord
	Unavailable []string
	Downloaded  int
	Skipped     int
}

// Complete reports whether every citing paper has a full text.
func (r Result) Complete() bool {
	return len(r.Unavailable) == 0
}

// Acquirer runs the acquisition stage for one seed at a time. It is safe for
// concurrent use on distinct WorkItems.
type Acquirer struct {
	Graph    citation.Graph
	Resolver Resolver
	Client   *http.Client
	Config   types.AcquisitionConfig
	Log      zerolog.Logger
	Metrics  *metrics.Recorder

	// CallTimeout bounds each external call; zero means no extra bound.
	CallTimeout time.Duration
}

// Acquire looks up seedTitle, lists up to the configured cap of citing papers,
// and downloads every resolvable full text into item. A failure to resolve or
// download one paper moves its title to Unavailable; only a failed seed lookup
// or citation listing returns an error.
func (a *Acquirer) Acquire(ctx context.Context, seedTitle string, item workitem.Item) (Result, error) {
	var res Result
	log := a.Log.With().Str("stage", "acquire").Str("item", item.Slug).Logger()

	seed, err := a.searchSeed(ctx, seedTitle)
	if err != nil {
		return res, err
	}
	log.Debug().Str("paper_id", seed.ID).Str("matched", seed.Title).Msg("seed resolved")

	papers, err := a.listCitations(ctx, seed.ID)
	if err != nil {
		return res, err
	}
	if len(papers) == 0 {
		return res, fmt.Errorf("%w: %q", ErrNoCitations, seedTitle)
	}
	log.Info().Int("citing", len(papers)).Msg("citing papers listed")

	claimed := make(map[string]bool)
	for _, p := range papers {
		rec := p.Record()
		doc := workitem.DocumentName(p.Title)
		if claimed[doc] {
			log.Debug().Str("paper", p.Title).Str("document", doc).Msg("document name already taken")
			res.Unavailable = append(res.Unavailable, p.Title)
			res.Records = append(res.Records, rec)
			continue
		}
		claimed[doc] = true
		name, fetched, institutions, err := a.fetchDocument(ctx, p, item, res.Downloaded > 0)
		if len(rec.Affiliations) == 0 {
			rec.Affiliations = institutions
		}
		switch {
		case err != nil:
			log.Debug().Err(err).Str("paper", p.Title).Msg("full text unavailable")
			res.Unavailable = append(res.Unavailable, p.Title)
		case name == "":
			res.Unavailable = append(res.Unavailable, p.Title)
		default:
			rec.Document = name
			if fetched {
				res.Downloaded++
			} else {
				res.Skipped++
			}
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// AcquireItem runs Acquire for the WorkItem's recorded title and persists
// unavailable.txt then publish_info.json. On error nothing is written.
func (a *Acquirer) AcquireItem(ctx context.Context, item workitem.Item) (Result, error) {
	title, err := item.Title()
	if err != nil {
		return Result{}, err
	}
	res, err := a.Acquire(ctx, title, item)
	if err != nil {
		return res, err
	}
	if err := item.WriteUnavailable(res.Unavailable); err != nil {
		return res, fmt.Errorf("writing %s: %w", workitem.UnavailableFile, err)
	}
	if err := item.WriteRecords(res.Records); err != nil {
		return res, fmt.Errorf("writing %s: %w", workitem.PublishInfoFile, err)
	}
	a.Log.Info().Str("stage", "acquire").Str("item", item.Slug).
		Int("records", len(res.Records)).Int("downloaded", res.Downloaded).
		Int("skipped", res.Skipped).Int("unavailable", len(res.Unavailable)).
		Msg("acquired")
	return res, nil
}

func (a *Acquirer) searchSeed(ctx context.Context, title string) (citation.Paper, error) {
	callCtx, cancel := a.callContext(ctx)
	defer cancel()
	seed, err := a.Graph.SearchTitle(callCtx, title)
	a.Metrics.Call("citation_graph", err)
	if err != nil {
		return seed, fmt.Errorf("looking up seed: %w", err)
	}
	return seed, nil
}

func (a *Acquirer) listCitations(ctx context.Context, paperID string) ([]citation.Paper, error) {
	limit := a.Config.CitationLimit
	if limit <= 0 {
		limit = citation.DefaultCitationLimit
	}
	callCtx, cancel := a.callContext(ctx)
	defer cancel()
	papers, err := a.Graph.Citations(callCtx, paperID, limit)
	a.Metrics.Call("citation_graph", err)
	if err != nil {
		return nil, fmt.Errorf("listing citations: %w", err)
	}
	return papers, nil
}

// fetchDocument resolves and downloads p's full text. It returns the stored
// file name ("" when no open-access copy exists), whether a transfer happened,
// and any author institutions the resolver reported. An existing file is
// reused without a request.
func (a *Acquirer) fetchDocument(ctx context.Context, p citation.Paper, item workitem.Item, pause bool) (string, bool, []string, error) {
	name := workitem.DocumentName(p.Title)
	if item.Has(name) {
		return name, false, nil, nil
	}

	callCtx, cancel := a.callContext(ctx)
	defer cancel()

	loc, err := a.Resolver.Resolve(callCtx, p.ExternalIDs)
	if err != nil {
		a.Metrics.Call("resolver", err)
		return "", false, nil, fmt.Errorf("resolving: %w", err)
	}
	if loc.URL == "" {
		return "", false, loc.Institutions, nil
	}

	if pause && a.Config.DownloadDelay > 0 {
		select {
		case <-ctx.Done():
			return "", false, loc.Institutions, ctx.Err()
		case <-time.After(a.Config.DownloadDelay):
		}
	}

	err = downloadFile(callCtx, a.client(), loc.URL, item.Path(name), a.Config.UserAgent)
	a.Metrics.Call("document_fetch", err)
	if err != nil {
		return "", false, loc.Institutions, err
	}
	return name, true, loc.Institutions, nil
}

func (a *Acquirer) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.CallTimeout > 0 {
		return context.WithTimeout(ctx, a.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func (a *Acquirer) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}
