// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citereview/internal/httputil"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func newTestClient(ts *httptest.Server, opts ...Option) *Client {
	base := []Option{WithBaseURL(ts.URL), WithHTTPClient(ts.Client()), WithRateLimit(0)}
	return NewClient(append(base, opts...)...)
}

func TestSearchTitle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/search", r.URL.Path)
		assert.Equal(t, "Attention Is All You Need", r.URL.Query().Get("query"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		fmt.Fprint(w, `{"total":1,"data":[{"paperId":"abc123","title":"Attention Is All You Need","externalIds":{"ArXiv":"1706.03762","CorpusId":13756489}}]}`)
	}))
	defer ts.Close()

	p, err := newTestClient(ts, WithAPIKey("secret")).SearchTitle(context.Background(), "Attention Is All You Need")
	require.NoError(t, err)
	assert.Equal(t, "abc123", p.ID)
	assert.Equal(t, "1706.03762", p.ExternalIDs.ArXiv)
}

func TestSearchTitleNoMatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"total":0,"data":[]}`)
	}))
	defer ts.Close()

	_, err := newTestClient(ts).SearchTitle(context.Background(), "nothing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestCitationsPaginatesToLimit(t *testing.T) {
	const total = 250
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/paper/abc123/citations", r.URL.Path)
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		assert.LessOrEqual(t, limit, pageSize)

		var data []map[string]any
		for i := offset; i < min(offset+limit, total); i++ {
			data = append(data, map[string]any{"citingPaper": map[string]any{
				"paperId": fmt.Sprintf("p%d", i),
				"title":   fmt.Sprintf("Citing paper %d", i),
				"venue":   "",
				"authors": []map[string]string{{"name": "A"}, {"name": "B"}},
			}})
		}
		resp := map[string]any{"offset": offset, "data": data}
		if offset+limit < total {
			resp["next"] = offset + limit
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	c := newTestClient(ts)

	papers, err := c.Citations(context.Background(), "abc123", 1000)
	require.NoError(t, err)
	assert.Len(t, papers, total)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, "Citing paper 0", papers[0].Title)
	assert.Equal(t, []string{"A", "B"}, papers[0].Authors)

	atomic.StoreInt32(&calls, 0)
	papers, err = c.Citations(context.Background(), "abc123", 150)
	require.NoError(t, err)
	assert.Len(t, papers, 150)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCitationsVenueAndUntitled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"offset":0,"data":[
			{"citingPaper":{"paperId":"1","title":"With venue","venue":"Nat. Commun.","publicationVenue":{"name":"Nature Communications"},"citationCount":7,"externalIds":{"DOI":"10.1/x"}}},
			{"citingPaper":{"paperId":"2","title":null}},
			{"citingPaper":{"paperId":"3","title":"No venue","venue":""}}
		]}`)
	}))
	defer ts.Close()

	papers, err := newTestClient(ts).Citations(context.Background(), "seed", 10)
	require.NoError(t, err)
	require.Len(t, papers, 2)

	rec := papers[0].Record()
	require.NotNil(t, rec.Publication)
	assert.Equal(t, "Nature Communications", *rec.Publication)
	assert.Equal(t, 7, rec.CitationCount)
	assert.Equal(t, "10.1/x", rec.ExternalIDs.DOI)

	none := papers[1].Record()
	assert.Nil(t, none.Publication)
	assert.Equal(t, []string{}, none.Authors)
}

func TestCitationsHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "paper not found", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := newTestClient(ts).Citations(context.Background(), "missing", 10)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "missing", apiErr.PaperID)
}

func TestRateLimitedAfterRetries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := newTestClient(ts, WithMaxRetries(1)).SearchTitle(context.Background(), "x")
	assert.True(t, IsRateLimited(err))
	assert.ErrorIs(t, err, ErrRateLimited)
}
