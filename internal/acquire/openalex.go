// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/citereview/internal/httputil"
)

// openAlexWork is the subset of an OpenAlex work we read: where the open
// copy lives and which institutions the authors list.
type openAlexWork struct {
	BestOALocation *struct {
		PDFURL string `json:"pdf_url"`
	} `json:"best_oa_location"`
	Authorships []struct {
		Institutions []struct {
			DisplayName string `json:"display_name"`
		} `json:"institutions"`
	} `json:"authorships"`
}

// institutions returns the distinct institution names in authorship order.
func (w openAlexWork) institutions() []string {
	seen := make(map[string]bool)
	var names []string
	for _, a := range w.Authorships {
		for _, inst := range a.Institutions {
			name := strings.TrimSpace(inst.DisplayName)
			key := strings.ToLower(name)
			if name == "" || seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, name)
		}
	}
	return names
}

// lookupOpenAlex fetches the OpenAlex work for doi. A DOI OpenAlex does not
// know yields a zero Location and no error.
func lookupOpenAlex(ctx context.Context, client *http.Client, doi, userAgent, email string) (Location, error) {
	apiURL := openAlexAPIBase + "https://doi.org/" + doi
	if email != "" {
		apiURL += "?mailto=" + url.QueryEscape(email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return Location{}, fmt.Errorf("building OpenAlex request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 2)
	if err != nil {
		return Location{}, fmt.Errorf("OpenAlex lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Location{}, nil
	default:
		return Location{}, fmt.Errorf("OpenAlex returned HTTP %d for %s", resp.StatusCode, doi)
	}

	var work openAlexWork
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		return Location{}, fmt.Errorf("decoding OpenAlex work: %w", err)
	}
	loc := Location{Institutions: work.institutions()}
	if work.BestOALocation != nil {
		loc.URL = work.BestOALocation.PDFURL
	}
	return loc, nil
}
