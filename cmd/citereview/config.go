// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/citereview/internal/citation"
	"github.com/pdiddy/citereview/internal/llm"
	"github.com/pdiddy/citereview/pkg/types"
)

const (
	defaultCorpusDir     = "corpus"
	defaultCallTimeout   = 5 * time.Minute
	defaultHTTPTimeout   = 60 * time.Second
	defaultDownloadDelay = time.Second
	defaultUserAgent     = "citereview/0.1"
)

// setDefaults registers every config key so environment variables bind to
// nested keys during Unmarshal.
func setDefaults(v *viper.Viper) {
	rules := types.DefaultRules()

	v.SetDefault("corpus_dir", defaultCorpusDir)
	v.SetDefault("workers", 1)
	v.SetDefault("call_timeout", defaultCallTimeout)
	v.SetDefault("container_image", "")
	v.SetDefault("metrics_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("acquisition.timeout", defaultHTTPTimeout)
	v.SetDefault("acquisition.user_agent", defaultUserAgent)
	v.SetDefault("acquisition.citation_limit", citation.DefaultCitationLimit)
	v.SetDefault("acquisition.download_delay", defaultDownloadDelay)
	v.SetDefault("acquisition.rate_limit", citation.DefaultRateLimit)
	v.SetDefault("acquisition.semantic_scholar_api_key", "")
	v.SetDefault("acquisition.openalex_email", "")

	v.SetDefault("llm.provider", string(types.ProviderOpenAI))
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_input_chars", llm.DefaultMaxInputChars)
	v.SetDefault("llm.max_retries", 3)

	v.SetDefault("rules.exclude_authors", rules.ExcludeAuthors)
	v.SetDefault("rules.exclude_institutions", rules.ExcludeInstitutions)
	v.SetDefault("rules.influential_venues", rules.InfluentialVenues)
	v.SetDefault("rules.influential_institutions", rules.InfluentialInstitutions)
	v.SetDefault("rules.excluded_universities", rules.ExcludedUniversities)
	v.SetDefault("rules.institution_standard", rules.InstitutionStandard)
	v.SetDefault("rules.author_standard", rules.AuthorStandard)
}

// loadConfig decodes the merged flag, env, file and default values.
func loadConfig() (types.PipelineConfig, error) {
	var c types.PipelineConfig
	if err := viper.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding config: %w", err)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.CorpusDir == "" {
		c.CorpusDir = defaultCorpusDir
	}
	switch c.LLM.Provider {
	case types.ProviderOpenAI, types.ProviderAnthropic:
	default:
		return c, fmt.Errorf("llm.provider must be %q or %q, got %q", types.ProviderOpenAI, types.ProviderAnthropic, c.LLM.Provider)
	}
	return c, nil
}
