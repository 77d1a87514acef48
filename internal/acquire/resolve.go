// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/pdiddy/citereview/pkg/types"
)

// Base URLs for open-access resolution. Declared as vars so tests can
// substitute httptest servers.
var (
	arxivPDFBase    = "https://arxiv.org/pdf/"
	openAlexAPIBase = "https://api.openalex.org/works/"
)

// arxivPattern matches new-style ("2301.07041v2") and old-style
// ("cs/0112017") arXiv identifiers, with an optional "arXiv:" prefix.
var arxivPattern = regexp.MustCompile(`^(?i:arxiv:)?((?:\d{4}\.\d{4,5}|[a-z\-]+(?:\.[A-Z]{2})?/\d{7})(?:v\d+)?)$`)

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// Location is where a citing paper's full text can be fetched. Institutions
// carries author affiliations when the lookup source reports them.
type Location struct {
	URL          string
	Institutions []string
}

// Resolver maps a citing paper's external identifiers to a Location. An
// empty URL with a nil error means no open-access copy is known.
type Resolver interface {
	Resolve(ctx context.Context, ids types.ExternalIDs) (Location, error)
}

// OpenAccessResolver prefers the arXiv PDF endpoint and falls back to the
// OpenAlex best open-access location for DOIs.
type OpenAccessResolver struct {
	Client    *http.Client
	UserAgent string
	// Email is sent as OpenAlex's mailto parameter for the polite pool.
	Email string
}

// Resolve returns the download location for ids.
func (r *OpenAccessResolver) Resolve(ctx context.Context, ids types.ExternalIDs) (Location, error) {
	if id := NormalizeArxiv(ids.ArXiv); id != "" {
		return Location{URL: arxivPDFBase + id}, nil
	}
	if doi := NormalizeDOI(ids.DOI); doi != "" {
		return lookupOpenAlex(ctx, r.Client, doi, r.UserAgent, r.Email)
	}
	return Location{}, nil
}

// NormalizeArxiv strips an optional "arXiv:" prefix and returns "" for
// strings that are not arXiv identifiers.
func NormalizeArxiv(id string) string {
	m := arxivPattern.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return ""
	}
	return m[1]
}

// NormalizeDOI strips resolver prefixes and returns "" for non-DOIs.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi:"} {
		if len(doi) >= len(prefix) && strings.EqualFold(doi[:len(prefix)], prefix) {
			doi = doi[len(prefix):]
		}
	}
	if !doiPattern.MatchString(doi) {
		return ""
	}
	return doi
}
