// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the records that flow between citereview pipeline stages.
// Every record here is persisted in a WorkItem directory; the JSON keys are part
// of the on-disk format and must not change.
package types

// ExternalIDs carries the identifiers the acquisition stage uses to locate an
// open-access full text.
type ExternalIDs struct {
	ArXiv string `json:"ArXiv,omitempty" yaml:"arxiv,omitempty"`
	DOI   string `json:"DOI,omitempty" yaml:"doi,omitempty"`
}

// CitationRecord is the bibliographic metadata of one citing paper, written to
// publish_info.json by acquisition. Immutable once written.
type CitationRecord struct {
	// Title is the citing paper's title as returned by the citation graph.
	Title string `json:"title"`

	// Publication is the venue name, nil when the graph does not know it.
	Publication *string `json:"publication"`

	// Authors lists author names in byline order.
	Authors []string `json:"authors"`

	// CitationCount is the citing paper's own citation count.
	CitationCount int `json:"citationCount"`

	// Affiliations lists known author affiliations. Usually empty.
	Affiliations []string `json:"affiliations,omitempty"`

	ExternalIDs ExternalIDs `json:"externalIds,omitempty"`

	// Document is the downloaded full-text file name inside the WorkItem
	// directory. Empty when no full text was retrieved.
	Document string `json:"document,omitempty"`
}

// Venue returns the publication venue or "" when unknown.
func (r CitationRecord) Venue() string {
	if r.Publication == nil {
		return ""
	}
	return *r.Publication
}

// LastAuthor returns the final byline author, or "" for an empty list.
func (r CitationRecord) LastAuthor() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return r.Authors[len(r.Authors)-1]
}

// InclusionDecision records why a citing paper passed the influence filter.
type InclusionDecision struct {
	File        string `json:"file"`
	Institution string `json:"institution"`
	Author      string `json:"author"`
	Publication string `json:"publication"`
}

// CitationContextResult is the outcome of context analysis for one accepted paper.
type CitationContextResult struct {
	PaperTitle          string   `json:"paper_title"`
	HasPositiveComments bool     `json:"has_positive_comments"`
	PositiveComments    []string `json:"positive_comments"`
	Author              string   `json:"author"`
	Institution         string   `json:"institution"`
	Publication         string   `json:"publication"`

	// Marker is the in-text citation token the seed is cited under, if found.
	Marker string `json:"marker,omitempty"`

	// Details explains a negative result.
	Details string `json:"details,omitempty"`
}

// SummaryRow is one line of the corpus-wide summary table.
type SummaryRow struct {
	TargetTitle      string
	PaperTitle       string
	Author           string
	Institution      string
	Publication      string
	PositiveComments []string
}

// UnavailableRow pairs a seed title with a citing paper whose full text could
// not be retrieved.
type UnavailableRow struct {
	CitedTitle string
	Title      string
}
