// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation queries the Semantic Scholar Graph API for a seed paper and
// the papers that cite it.
package citation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/citereview/internal/httputil"
	"github.com/pdiddy/citereview/pkg/types"
)

const (
	// DefaultBaseURL is the Semantic Scholar Graph API root.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is requests per second without an API key.
	DefaultRateLimit = 1.0

	// DefaultCitationLimit caps how many citing papers are listed per seed.
	DefaultCitationLimit = 1000

	pageSize       = 100
	citationFields = "title,externalIds,venue,publicationVenue,authors,citationCount"
	searchFields   = "title,externalIds"
)

// Paper is one node of the citation graph.
type Paper struct {
	ID            string
	Title         string
	Venue         string
	Authors       []string
	CitationCount int
	ExternalIDs   types.ExternalIDs
}

// Record converts the paper into the persisted bibliographic record. An
// unknown venue becomes a null publication.
func (p Paper) Record() types.CitationRecord {
	rec := types.CitationRecord{
		Title:         p.Title,
		Authors:       p.Authors,
		CitationCount: p.CitationCount,
		ExternalIDs:   p.ExternalIDs,
	}
	if rec.Authors == nil {
		rec.Authors = []string{}
	}
	if v := strings.TrimSpace(p.Venue); v != "" {
		rec.Publication = &v
	}
	return rec
}

// Graph is the citation-graph collaborator used by acquisition.
type Graph interface {
	// SearchTitle returns the top match for a title.
	SearchTitle(ctx context.Context, title string) (Paper, error)
	// Citations lists up to limit papers citing paperID.
	Citations(ctx context.Context, paperID string, limit int) ([]Paper, error)
}

// Client is a rate-limited Semantic Scholar Graph API client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	userAgent  string
	maxRetries int
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key in the x-api-key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another server (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRateLimit sets the sustained request rate. Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithMaxRetries sets how often a 429 is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient creates a Semantic Scholar client. The limiter is shared by every
// goroutine using the client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    DefaultBaseURL,
		userAgent:  "citereview/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchTitle returns the top-ranked paper for title, or ErrNotFound.
func (c *Client) SearchTitle(ctx context.Context, title string) (Paper, error) {
	params := url.Values{
		"query":  {title},
		"limit":  {"1"},
		"fields": {searchFields},
	}
	var sr searchResponse
	if err := c.get(ctx, "/paper/search", params, "", &sr); err != nil {
		return Paper{}, fmt.Errorf("searching %q: %w", title, err)
	}
	if len(sr.Data) == 0 || sr.Data[0].PaperID == "" {
		return Paper{}, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	return sr.Data[0].toPaper(), nil
}

// Citations pages through /paper/{id}/citations until limit papers are
// collected or the service reports no further page. Entries without a title
// are dropped.
func (c *Client) Citations(ctx context.Context, paperID string, limit int) ([]Paper, error) {
	if limit <= 0 {
		limit = DefaultCitationLimit
	}
	path := "/paper/" + url.PathEscape(paperID) + "/citations"

	var papers []Paper
	offset := 0
	for offset < limit {
		n := min(pageSize, limit-offset)
		params := url.Values{
			"fields": {citationFields},
			"offset": {strconv.Itoa(offset)},
			"limit":  {strconv.Itoa(n)},
		}
		var page citationsResponse
		if err := c.get(ctx, path, params, paperID, &page); err != nil {
			return nil, fmt.Errorf("listing citations of %s: %w", paperID, err)
		}
		for _, entry := range page.Data {
			if strings.TrimSpace(entry.CitingPaper.Title) == "" {
				continue
			}
			papers = append(papers, entry.CitingPaper.toPaper())
		}
		if page.Next == nil || len(page.Data) == 0 {
			break
		}
		offset = *page.Next
	}
	if len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, paperID string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", ErrRateLimited, &APIError{StatusCode: resp.StatusCode, Message: "too many requests", PaperID: paperID})
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body)), PaperID: paperID}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// Semantic Scholar Graph API JSON structures.
type searchResponse struct {
	Total int        `json:"total"`
	Data  []apiPaper `json:"data"`
}

type citationsResponse struct {
	Offset int  `json:"offset"`
	Next   *int `json:"next"`
	Data   []struct {
		CitingPaper apiPaper `json:"citingPaper"`
	} `json:"data"`
}

type apiPaper struct {
	PaperID          string         `json:"paperId"`
	Title            string         `json:"title"`
	Venue            string         `json:"venue"`
	PublicationVenue *apiVenue      `json:"publicationVenue"`
	CitationCount    int            `json:"citationCount"`
	Authors          []apiAuthor    `json:"authors"`
	ExternalIDs      map[string]any `json:"externalIds"`
}

type apiVenue struct {
	Name string `json:"name"`
}

type apiAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

func (p apiPaper) toPaper() Paper {
	out := Paper{
		ID:            p.PaperID,
		Title:         strings.TrimSpace(p.Title),
		Venue:         p.Venue,
		CitationCount: p.CitationCount,
	}
	if p.PublicationVenue != nil && p.PublicationVenue.Name != "" {
		out.Venue = p.PublicationVenue.Name
	}
	for _, a := range p.Authors {
		if a.Name != "" {
			out.Authors = append(out.Authors, a.Name)
		}
	}
	// externalIds mixes string and numeric values (CorpusId).
	if v, ok := p.ExternalIDs["ArXiv"].(string); ok {
		out.ExternalIDs.ArXiv = v
	}
	if v, ok := p.ExternalIDs["DOI"].(string); ok {
		out.ExternalIDs.DOI = v
	}
	return out
}
