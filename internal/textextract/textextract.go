// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textextract turns downloaded full texts into plain text for the
// LLM-driven stages.
package textextract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/citereview/internal/workitem"
)

// ErrNoText is returned when a document yields no extractable text.
var ErrNoText = errors.New("no extractable text")

// Extractor produces the page-concatenated plain text of a document.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// CacheExt is the extension of the plain-text sidecar written by Cached.
const CacheExt = ".txt"

// Cached stores each extraction beside its document (<name>.pdf.txt) and serves
// later requests from that file.
type Cached struct {
	Inner Extractor
	Log   zerolog.Logger
}

// Extract returns the sidecar text when present, otherwise extracts and
// writes the sidecar. A failed sidecar write is logged and does not fail the
// extraction.
func (c Cached) Extract(ctx context.Context, path string) (string, error) {
	sidecar := SidecarPath(path)
	if data, err := os.ReadFile(sidecar); err == nil && len(data) > 0 {
		return string(data), nil
	}
	text, err := c.Inner.Extract(ctx, path)
	if err != nil {
		return "", err
	}
	if err := workitem.WriteAtomic(sidecar, strings.NewReader(text)); err != nil {
		c.Log.Warn().Err(err).Str("document", filepath.Base(path)).Msg("text cache not written")
	}
	return text, nil
}

// SidecarPath returns the cache file for a document.
func SidecarPath(path string) string {
	return path + CacheExt
}

// Fallback tries each extractor in order and returns the first non-empty text.
type Fallback []Extractor

// Extract implements Extractor.
func (f Fallback) Extract(ctx context.Context, path string) (string, error) {
	var errs []error
	for _, e := range f {
		text, err := e.Extract(ctx, path)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = ErrNoText
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("no extractor configured for %s", filepath.Base(path))
	}
	return "", errors.Join(errs...)
}
