package scraper

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luanbrandao/newswatch/internal/metrics"
	"github.com/luanbrandao/newswatch/internal/news"
	"github.com/luanbrandao/newswatch/internal/store/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type stubFetcher struct {
	html string
	err  error
	hits int
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.hits++
	if f.err != nil {
		return "", f.err
	}
	return f.html, nil
}

const homepage = `<html><body>
	<a class="feed-post-link" href="/economia/materia-um">Economy grows in second quarter</a>
	<a class="feed-post-link" href="https://g1.globo.com/saude/materia-dois">New vaccine rollout announced</a>
</body></html>`

func newTestScraper(t *testing.T, f Fetcher) (*Scraper, *memory.Store) {
	t.Helper()
	ex, err := news.NewExtractor("https://g1.globo.com/", "g1.globo.com", nil)
	require.NoError(t, err)
	st := memory.New()
	s, err := New("https://g1.globo.com/", f, ex, st, nil)
	require.NoError(t, err)
	return s, st
}

func TestScrapePersistsNewArticles(t *testing.T) {
	t.Parallel()

	s, st := newTestScraper(t, &stubFetcher{html: homepage})

	found, saved, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, found)
	require.Equal(t, 2, saved)
	require.Equal(t, 2, st.Len())
}

func TestScrapeSecondRunSavesNothing(t *testing.T) {
	t.Parallel()

	s, st := newTestScraper(t, &stubFetcher{html: homepage})

	_, _, err := s.Scrape(context.Background())
	require.NoError(t, err)

	found, saved, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, found)
	require.Equal(t, 0, saved)
	require.Equal(t, 2, st.Len())
}

func TestScrapeFetchFailureAbortsRun(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	s, st := newTestScraper(t, &stubFetcher{err: boom})

	found, saved, err := s.Scrape(context.Background())
	require.ErrorIs(t, err, boom)
	require.Zero(t, found)
	require.Zero(t, saved)
	require.Zero(t, st.Len())
}

func TestScrapeEmptyPageIsNotAnError(t *testing.T) {
	t.Parallel()

	s, st := newTestScraper(t, &stubFetcher{html: "<html><body><p>nothing here</p></body></html>"})

	found, saved, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Zero(t, found)
	require.Zero(t, saved)
	require.Zero(t, st.Len())
}

func TestNewValidatesDependencies(t *testing.T) {
	t.Parallel()

	ex, err := news.NewExtractor("https://g1.globo.com/", "g1.globo.com", nil)
	require.NoError(t, err)
	st := memory.New()
	f := &stubFetcher{}

	for name, build := range map[string]func() (*Scraper, error){
		"missing url":       func() (*Scraper, error) { return New("", f, ex, st, nil) },
		"missing fetcher":   func() (*Scraper, error) { return New("https://g1.globo.com/", nil, ex, st, nil) },
		"missing extractor": func() (*Scraper, error) { return New("https://g1.globo.com/", f, nil, st, nil) },
		"missing store":     func() (*Scraper, error) { return New("https://g1.globo.com/", f, ex, nil, nil) },
	} {
		t.Run(name, func(t *testing.T) {
			_, err := build()
			require.Error(t, err)
		})
	}
}
