package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luanbrandao/newswatch/internal/metrics"
	"github.com/luanbrandao/newswatch/internal/news"
	"github.com/luanbrandao/newswatch/internal/store/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fakeScraper struct {
	found, saved int
	err          error
}

func (f *fakeScraper) Scrape(context.Context) (int, int, error) {
	return f.found, f.saved, f.err
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	_, err := st.SaveNew(context.Background(), []news.Candidate{
		{Title: "Economy grows in second quarter", URL: "https://g1.globo.com/economia/a"},
		{Title: "New vaccine rollout announced", URL: "https://g1.globo.com/saude/b"},
		{Title: "Storm expected over the weekend", URL: "https://g1.globo.com/clima/c"},
	})
	require.NoError(t, err)
	return st
}

func doRequest(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestRootDescribesService(t *testing.T) {
	t.Parallel()

	srv := NewServer(memory.New(), &fakeScraper{}, nil)
	rec := doRequest(t, srv, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, ServiceName, body["service"])
	assert.Equal(t, "running", body["status"])
	assert.NotEmpty(t, body["endpoints"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := NewServer(memory.New(), &fakeScraper{}, nil)
	rec := doRequest(t, srv, http.MethodGet, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, ServiceName, body["service"])
}

func TestListNewsDefaults(t *testing.T) {
	t.Parallel()

	srv := NewServer(seededStore(t), &fakeScraper{}, nil)
	rec := doRequest(t, srv, http.MethodGet, "/news")

	require.Equal(t, http.StatusOK, rec.Code)
	var articles []news.Article
	decodeBody(t, rec, &articles)
	assert.Len(t, articles, 3)
}

func TestListNewsPaging(t *testing.T) {
	t.Parallel()

	srv := NewServer(seededStore(t), &fakeScraper{}, nil)
	rec := doRequest(t, srv, http.MethodGet, "/news?limit=1&offset=1")

	require.Equal(t, http.StatusOK, rec.Code)
	var articles []news.Article
	decodeBody(t, rec, &articles)
	assert.Len(t, articles, 1)
}

func TestListNewsRejectsMalformedParams(t *testing.T) {
	t.Parallel()

	srv := NewServer(seededStore(t), &fakeScraper{}, nil)

	for _, target := range []string{"/news?limit=abc", "/news?offset=x", "/news?limit=-1", "/news?offset=-2"} {
		rec := doRequest(t, srv, http.MethodGet, target)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, target)
		var body map[string]string
		decodeBody(t, rec, &body)
		assert.NotEmpty(t, body["detail"], target)
	}
}

func TestScrapeReportsAddedArticles(t *testing.T) {
	t.Parallel()

	srv := NewServer(memory.New(), &fakeScraper{found: 5, saved: 3}, nil)
	rec := doRequest(t, srv, http.MethodPost, "/scrape")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 3, body["news_added"])
	assert.NotEmpty(t, body["message"])
}

func TestScrapeFailureReturnsDetail(t *testing.T) {
	t.Parallel()

	srv := NewServer(memory.New(), &fakeScraper{err: errors.New("source unreachable")}, nil)
	rec := doRequest(t, srv, http.MethodPost, "/scrape")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Contains(t, body["detail"], "source unreachable")
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	t.Parallel()

	srv := NewServer(memory.New(), &fakeScraper{}, nil)
	rec := doRequest(t, srv, http.MethodGet, "/nope")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "not found", body["detail"])
}

func TestWrongMethodReturnsJSON405(t *testing.T) {
	t.Parallel()

	srv := NewServer(memory.New(), &fakeScraper{}, nil)
	rec := doRequest(t, srv, http.MethodDelete, "/news")

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "method not allowed", body["detail"])
}

func TestMetricsEndpointExposed(t *testing.T) {
	t.Parallel()

	srv := NewServer(memory.New(), &fakeScraper{}, nil)
	rec := doRequest(t, srv, http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
