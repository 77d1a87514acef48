// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import "github.com/pdiddy/citereview/internal/llm"

// promptData feeds both inclusion prompts.
type promptData struct {
	Authors              string
	SeniorAuthors        string
	Institutions         string
	ExcludedUniversities string
	Standard             string
}

var institutionPrompt = llm.NewPromptSpec("influential-institution",
	`You are an expert researcher. Your task is to determine if the authors of a paper belong to influential institutions.

Influential institutions include: {{.Data.Institutions}}.
{{- if .Data.Standard}}

Influential institutions are judged by this standard:
{{.Data.Standard}}
{{- end}}
{{- if .Data.ExcludedUniversities}}

Authors affiliated with {{.Data.ExcludedUniversities}} never count.
{{- end}}

Please analyze the paper text and determine if any of the authors are affiliated with these institutions.
Do not consider universities as influential institutions.

Respond in the following JSON format:
{
    "has_influential_institution_author": true/false,
    "name": "name of the last author in the institution",
    "institution": "name of the institution, no matter influential or not",
    "explanation": "brief explanation"
}`,
	`Authors: {{.Data.Authors}}

Paper text:
{{.Document}}`)

var authorPrompt = llm.NewPromptSpec("influential-author",
	`You are an expert researcher. Your task is to determine if there are any influential authors among the last authors of a paper.

An influential author is defined as:
{{.Data.Standard}}

DO NOT judge influence by citation count.
{{- if .Data.ExcludedUniversities}} DO NOT include authors from {{.Data.ExcludedUniversities}}.{{end}}

Only consider these authors: {{.Data.SeniorAuthors}}

Respond in the following JSON format:
{
    "has_influential_author": true/false,
    "name": "the name of the influential author, leave empty if none",
    "institution": "the institution which the author belongs to",
    "explanation": "brief explanation"
}`,
	`Authors: {{.Data.Authors}}

Paper text:
{{.Document}}`)

type institutionVerdict struct {
	HasInfluential bool   `json:"has_influential_institution_author"`
	Name           string `json:"name"`
	Institution    string `json:"institution"`
	Explanation    string `json:"explanation"`
}

type authorVerdict struct {
	HasInfluential bool   `json:"has_influential_author"`
	Name           string `json:"name"`
	Institution    string `json:"institution"`
	Explanation    string `json:"explanation"`
}
