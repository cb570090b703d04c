// Package scraper ties fetching, extraction and persistence into one run.
package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/luanbrandao/newswatch/internal/logging"
	"github.com/luanbrandao/newswatch/internal/metrics"
	"github.com/luanbrandao/newswatch/internal/news"
	"github.com/luanbrandao/newswatch/internal/store"
)

// Fetcher retrieves the homepage HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Scraper runs the fetch, extract and persist pipeline against one source.
type Scraper struct {
	url       string
	fetcher   Fetcher
	extractor *news.Extractor
	store     store.ArticleStore
	logger    *zap.Logger
}

// New builds a Scraper. All dependencies are required except the logger.
func New(url string, fetcher Fetcher, extractor *news.Extractor, st store.ArticleStore, logger *zap.Logger) (*Scraper, error) {
	if url == "" {
		return nil, fmt.Errorf("source url is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Scraper{
		url:       url,
		fetcher:   fetcher,
		extractor: extractor,
		store:     st,
		logger:    logging.OrNop(logger),
	}, nil
}

// Scrape performs one full run. found is the number of candidates extracted
// from the page, saved the number of rows actually persisted. A fetch
// failure aborts the run before extraction or persistence.
func (s *Scraper) Scrape(ctx context.Context) (found, saved int, err error) {
	start := time.Now()

	html, err := s.fetcher.Fetch(ctx, s.url)
	if err != nil {
		metrics.ObserveScrapeRun("fetch_error", 0, 0, time.Since(start))
		return 0, 0, fmt.Errorf("fetch %s: %w", s.url, err)
	}

	candidates := s.extractor.Extract(html)
	valid := candidates[:0]
	for _, c := range candidates {
		if c.Valid() {
			valid = append(valid, c)
		} else {
			s.logger.Debug("dropping candidate over schema limits", zap.String("url", c.URL))
		}
	}
	candidates = valid
	if len(candidates) == 0 {
		s.logger.Warn("no article links extracted", zap.String("url", s.url))
		metrics.ObserveScrapeRun("empty", 0, 0, time.Since(start))
		return 0, 0, nil
	}

	saved, err = s.store.SaveNew(ctx, candidates)
	if err != nil {
		metrics.ObserveScrapeRun("store_error", len(candidates), 0, time.Since(start))
		return len(candidates), 0, fmt.Errorf("persist articles: %w", err)
	}

	s.logger.Info("scrape completed",
		zap.String("url", s.url),
		zap.Int("found", len(candidates)),
		zap.Int("saved", saved),
		zap.Duration("elapsed", time.Since(start)),
	)
	metrics.ObserveScrapeRun("success", len(candidates), saved, time.Since(start))
	return len(candidates), saved, nil
}
