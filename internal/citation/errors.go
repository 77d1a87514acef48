// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by Graph implementations.
var (
	// ErrNotFound means the title search matched no paper.
	ErrNotFound = errors.New("paper not found in citation graph")

	// ErrRateLimited means the service kept answering 429 after retries.
	ErrRateLimited = errors.New("citation graph rate limit exceeded")
)

// APIError is a non-200 response from the citation graph service.
type APIError struct {
	StatusCode int
	Message    string
	PaperID    string
}

func (e *APIError) Error() string {
	if e.PaperID != "" {
		return fmt.Sprintf("citation graph HTTP %d: %s (paper: %s)", e.StatusCode, e.Message, e.PaperID)
	}
	return fmt.Sprintf("citation graph HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err means the paper does not exist.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}
