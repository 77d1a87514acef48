// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	RetryBaseDelay = 1 * time.Millisecond
}

func statusSequence(t *testing.T, calls *int32, statuses ...int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(atomic.AddInt32(calls, 1))
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{"immediate success", nil, 5, http.StatusOK, 1},
		{"429 then success", []int{429, 429}, 5, http.StatusOK, 3},
		{"503 then success", []int{503}, 5, http.StatusOK, 2},
		{"exhausts retries", []int{429, 429, 429, 429, 429}, 3, http.StatusTooManyRequests, 4},
		{"default max retries", []int{429, 429, 429, 429, 429, 429, 429}, 0, http.StatusTooManyRequests, 6},
		{"500 passes through", []int{500}, 5, http.StatusInternalServerError, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := statusSequence(t, &calls, tt.statuses...)

			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tt.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestDoWithRetry_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	old := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	defer func() { RetryBaseDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoWithRetry_ReplaysBody(t *testing.T) {
	var calls int32
	var bodies []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(data))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(`{"q":1}`))
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 2)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{`{"q":1}`, `{"q":1}`}, bodies)
}

func TestBackoff(t *testing.T) {
	old := RetryBaseDelay
	RetryBaseDelay = time.Second
	defer func() { RetryBaseDelay = old }()

	assert.Equal(t, time.Second, backoff(0, ""))
	assert.Equal(t, 4*time.Second, backoff(2, ""))
	assert.Equal(t, 7*time.Second, backoff(3, "7"))
	assert.Equal(t, MaxRetryAfter, backoff(0, "99999"))
	assert.Equal(t, 2*time.Second, backoff(1, "Wed, 21 Oct 2015 07:28:00 GMT"))
}
