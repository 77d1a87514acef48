// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "citereview/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// AcquisitionConfig holds settings for the acquisition stage.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// CitationLimit caps the number of citing papers fetched per seed (default 1000).
	CitationLimit int `json:"citation_limit" yaml:"citation_limit" mapstructure:"citation_limit"`

	// DownloadDelay is the delay between consecutive document downloads.
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" mapstructure:"download_delay"`

	// RateLimit is the citation-graph request rate in requests per second.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// OpenAlexEmail is sent as the mailto parameter on OpenAlex lookups.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`
}

// LLMProvider selects the chat backend.
type LLMProvider string

const (
	ProviderOpenAI    LLMProvider = "openai"
	ProviderAnthropic LLMProvider = "anthropic"
)

// LLMConfig holds settings for the chat collaborator used by classification
// and context analysis.
type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible server) or "anthropic".
	Provider LLMProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// BaseURL is the API root, e.g. "http://localhost:8000/v1" for a local vLLM server.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Model is the model identifier passed to the backend.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the chat API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxInputChars truncates document text sent in one request (default 400000,
	// roughly a 100k-token budget).
	MaxInputChars int `json:"max_input_chars" yaml:"max_input_chars" mapstructure:"max_input_chars"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// RulesConfig holds the operator-configured influence criteria.
type RulesConfig struct {
	ExcludeAuthors          []string `json:"exclude_authors" yaml:"exclude_authors" mapstructure:"exclude_authors"`
	ExcludeInstitutions     []string `json:"exclude_institutions" yaml:"exclude_institutions" mapstructure:"exclude_institutions"`
	InfluentialVenues       []string `json:"influential_venues" yaml:"influential_venues" mapstructure:"influential_venues"`
	InfluentialInstitutions []string `json:"influential_institutions" yaml:"influential_institutions" mapstructure:"influential_institutions"`
	ExcludedUniversities    []string `json:"excluded_universities" yaml:"excluded_universities" mapstructure:"excluded_universities"`

	// InstitutionStandard is free text appended to the institution prompt.
	InstitutionStandard string `json:"institution_standard" yaml:"institution_standard" mapstructure:"institution_standard"`

	// AuthorStandard is free text describing what makes an author influential.
	AuthorStandard string `json:"author_standard" yaml:"author_standard" mapstructure:"author_standard"`
}

// LogConfig controls the zerolog logger built at startup.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	// CorpusDir is the directory holding one subdirectory per WorkItem.
	CorpusDir string `json:"corpus_dir" yaml:"corpus_dir" mapstructure:"corpus_dir"`

	// Workers is the number of WorkItems processed concurrently (default 1).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// CallTimeout bounds each external call (search, download, LLM query).
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout" mapstructure:"call_timeout"`

	// ContainerImage, when set, names a pdftotext image used when the
	// built-in PDF reader yields no text.
	ContainerImage string `json:"container_image,omitempty" yaml:"container_image,omitempty" mapstructure:"container_image"`

	// MetricsFile, when set, receives a Prometheus textfile after each run.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`

	Log         LogConfig         `json:"log" yaml:"log" mapstructure:"log"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition" mapstructure:"acquisition"`
	LLM         LLMConfig         `json:"llm" yaml:"llm" mapstructure:"llm"`
	Rules       RulesConfig       `json:"rules" yaml:"rules" mapstructure:"rules"`
}

// DefaultRules returns the criteria the pipeline ships with.
func DefaultRules() RulesConfig {
	return RulesConfig{
		ExcludeAuthors: []string{"Gang Pan", "Pan Gang"},
		InfluentialVenues: []string{
			"Cell", "Nature", "Science",
			"Nature Machine Intelligence", "Nature Communications",
			"Cell Reports", "iScience", "Joule", "Matter",
		},
		InfluentialInstitutions: []string{
			"NASA", "Nvidia", "OpenAI", "IBM", "Intel",
			"Google", "Meta", "Microsoft", "Facebook", "Alphabet",
		},
		ExcludedUniversities: []string{"Zhejiang University"},
		InstitutionStandard: `1. Big tech companies like Google, Nvidia, OpenAI, Meta, Microsoft, etc.
2. Do not consider universities as influential institutions`,
		AuthorStandard: `1. A fellow of the national academy of science or engineering in China, US, Europe or Singapore
2. The leader of a famous lab or department in US, Europe or Singapore`,
	}
}
