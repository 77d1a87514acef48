// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textextract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads text in-process with github.com/ledongthuc/pdf. Pages
// are joined with a newline; null pages and pages that fail to decode are
// skipped.
type PDFExtractor struct{}

// Extract implements Extractor. The parser panics on some malformed files;
// those panics are returned as errors.
func (PDFExtractor) Extract(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parsing %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteByte('\n')
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoText)
	}
	return b.String(), nil
}
