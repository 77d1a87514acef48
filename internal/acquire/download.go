// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pdiddy/citereview/internal/workitem"
)

// ErrNotPDF is returned when a full-text URL answers with something other
// than a PDF, typically an HTML landing page.
var ErrNotPDF = errors.New("response is not a PDF")

var pdfMagic = []byte("%PDF-")

// downloadFile fetches url into destPath. The body must start with the PDF
// signature; nothing is written otherwise.
func downloadFile(ctx context.Context, client *http.Client, url, destPath, userAgent string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	body := bufio.NewReader(resp.Body)
	head, _ := body.Peek(len(pdfMagic))
	if !bytes.Equal(head, pdfMagic) {
		return fmt.Errorf("%s: %w (Content-Type %q)", url, ErrNotPDF, resp.Header.Get("Content-Type"))
	}
	return workitem.WriteAtomic(destPath, body)
}
