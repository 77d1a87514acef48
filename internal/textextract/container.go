// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textextract

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/pdiddy/citereview/internal/container"
)

// DefaultImage is a poppler-utils image whose entrypoint is pdftotext.
const DefaultImage = "pdftotext:latest"

// ContainerExtractor pipes the document through pdftotext running in a
// docker or podman container.
type ContainerExtractor struct {
	runtime container.Runtime
	image   string
}

// NewContainerExtractor verifies that image exists in rt.
func NewContainerExtractor(ctx context.Context, rt container.Runtime, image string) (*ContainerExtractor, error) {
	if image == "" {
		image = DefaultImage
	}
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("text extraction image not available in %s: %w", rt.Name(), err)
	}
	return &ContainerExtractor{runtime: rt, image: image}, nil
}

// Extract implements Extractor.
func (c *ContainerExtractor) Extract(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := c.runtime.Run(ctx, c.image, []string{"-enc", "UTF-8", "-", "-"}, f, &out); err != nil {
		return "", fmt.Errorf("extracting %s: %w", path, err)
	}
	if len(bytes.TrimSpace(out.Bytes())) == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrNoText)
	}
	return out.String(), nil
}
