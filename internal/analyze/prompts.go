// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/citereview/internal/llm"
)

// promptData feeds the three context prompts.
type promptData struct {
	Title      string
	Marker     string
	Paragraphs string
}

var markerPrompt = llm.NewPromptSpec("citation-marker",
	`You are an expert at analyzing academic papers. Your task is to find the citation index of a specific paper in the given text.
The target paper title is: "{{.Data.Title}}"

Please follow these steps:
1. Look for the reference section in the text
2. Find the entry that matches the target paper title
3. Identify the citation index used for this paper (e.g. [1], [12], (Smith et al., 2023))

Respond in the following JSON format:
{
    "citation_index": "the citation index as it appears in the text, or null if not found",
    "explanation": "brief explanation"
}`,
	`Please find the citation index for "{{.Data.Title}}" in the following paper text:

{{.Document}}`)

var paragraphsPrompt = llm.NewPromptSpec("citing-paragraphs",
	`You are an expert at analyzing academic papers. Your task is to find every paragraph in the main text that cites a reference using the citation index {{.Data.Marker}}.
Only consider the main text of the paper, not the reference section.
Copy each paragraph exactly as it appears.

Respond in the following JSON format:
{
    "paragraphs": ["paragraph 1", "paragraph 2"],
    "explanation": "brief explanation"
}`,
	`Please find paragraphs containing the citation "{{.Data.Marker}}" in the following paper text:

{{.Document}}`)

var sentimentPrompt = llm.NewPromptSpec("citation-sentiment",
	`You are an expert at analyzing academic papers. You will be given paragraphs from a paper that cite the target paper "{{.Data.Title}}" using the citation {{.Data.Marker}}.
Your task is to decide whether the paragraphs comment positively on the target paper.

Positive comments include, for example:
1. "... is the first to ..."
2. "... achieves fast inference ..." or "... achieves good performance ..."
3. A favorable comparison with the target paper in experiments
4. Any other positive evaluation of the target paper

Respond in the following JSON format:
{
    "has_positive_comments": true/false,
    "positive_comments": ["sentence with positive comment 1", "sentence with positive comment 2"],
    "explanation": "brief explanation"
}`,
	`Please analyze the following paragraphs for positive comments about "{{.Data.Title}}" (cited as {{.Data.Marker}}):

{{.Data.Paragraphs}}`)

type markerReply struct {
	// CitationIndex is usually a string but models also answer with a bare number.
	CitationIndex json.RawMessage `json:"citation_index"`
	Explanation   string          `json:"explanation"`
}

// Marker returns the normalized citation token, or "" when none was found.
func (r markerReply) Marker() string {
	raw := strings.TrimSpace(string(r.CitationIndex))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.CitationIndex, &s); err == nil {
		s = strings.TrimSpace(s)
		switch strings.ToLower(s) {
		case "", "null", "none", "not found", "n/a":
			return ""
		}
		return s
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return fmt.Sprintf("[%d]", int(n))
	}
	return ""
}

type paragraphsReply struct {
	Paragraphs  []string `json:"paragraphs"`
	Explanation string   `json:"explanation"`
}

type sentimentReply struct {
	HasPositive bool     `json:"has_positive_comments"`
	Comments    []string `json:"positive_comments"`
	Explanation string   `json:"explanation"`
}
