// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Key files citereview looks for.
const (
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	LLMAPIKey             = "llm-api-key"
	OpenAlexEmail         = "openalex-email"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

// Store maps key names to secret values.
type Store map[string]string

// Load reads all files in dir. A missing directory is an empty Store.
// Unreadable files are logged and skipped.
func Load(dir string, log zerolog.Logger) (Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := Store{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}
	return s, nil
}

// Resolve returns configured when it is set, otherwise the secret stored
// under key, otherwise "".
func (s Store) Resolve(configured, key string) string {
	if configured != "" {
		return configured
	}
	return s[key]
}

// Keys returns the loaded key names in sorted order.
func (s Store) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
