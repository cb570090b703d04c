package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ScrapePipeline is one full fetch, extract and persist run.
type ScrapePipeline interface {
	Scrape(ctx context.Context) (found, saved int, err error)
}

// ScrapeBenchmark repeats an instrumented scrape run and collects metrics
// per iteration. The pipeline is rebuilt each iteration so its network
// samples land in that iteration's collector.
type ScrapeBenchmark struct {
	build      func(rec Recorder) (ScrapePipeline, error)
	iterations int
	interval   time.Duration
	logger     *zap.Logger
}

// NewScrapeBenchmark builds a benchmark runner. build is called once per
// iteration with that iteration's sample recorder.
func NewScrapeBenchmark(build func(rec Recorder) (ScrapePipeline, error), iterations int, interval time.Duration, logger *zap.Logger) (*ScrapeBenchmark, error) {
	if build == nil {
		return nil, errors.New("pipeline builder is required")
	}
	if iterations <= 0 {
		iterations = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScrapeBenchmark{
		build:      build,
		iterations: iterations,
		interval:   interval,
		logger:     logger,
	}, nil
}

// Run executes the iterations. Failed iterations are logged and skipped;
// an error is returned only when every iteration failed.
func (b *ScrapeBenchmark) Run(ctx context.Context) ([]*RunMetrics, error) {
	var runs []*RunMetrics
	var lastErr error

	for i := 0; i < b.iterations; i++ {
		if err := ctx.Err(); err != nil {
			return runs, err
		}
		m, err := b.runOnce(ctx)
		if err != nil {
			lastErr = err
			b.logger.Warn("benchmark iteration failed",
				zap.Int("iteration", i+1),
				zap.Error(err),
			)
			continue
		}
		runs = append(runs, m)
		b.logger.Info("benchmark iteration completed",
			zap.Int("iteration", i+1),
			zap.Duration("duration", m.TotalDuration()),
			zap.Int("found", m.ArticlesFound),
			zap.Int("saved", m.ArticlesSaved),
		)
	}

	if len(runs) == 0 {
		return nil, fmt.Errorf("all %d iterations failed: %w", b.iterations, lastErr)
	}
	return runs, nil
}

func (b *ScrapeBenchmark) runOnce(ctx context.Context) (*RunMetrics, error) {
	collector := NewCollector(RunScrape, b.interval, b.logger)
	pipeline, err := b.build(collector)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	if err := collector.Start(); err != nil {
		return nil, err
	}

	found, saved, scrapeErr := pipeline.Scrape(ctx)

	m, err := collector.Stop(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	if scrapeErr != nil {
		return nil, scrapeErr
	}
	m.ArticlesFound = found
	m.ArticlesSaved = saved
	return m, nil
}

// Summary aggregates a set of successful benchmark runs.
type Summary struct {
	Runs        int
	AvgDuration time.Duration
	AvgFound    float64
	AvgSaved    float64
	Fastest     int
}

// Summarize computes cross-iteration averages and the fastest run index.
func Summarize(runs []*RunMetrics) Summary {
	s := Summary{Runs: len(runs)}
	if len(runs) == 0 {
		return s
	}

	var total time.Duration
	fastest := 0
	for i, m := range runs {
		d := m.TotalDuration()
		total += d
		if d < runs[fastest].TotalDuration() {
			fastest = i
		}
		s.AvgFound += float64(m.ArticlesFound)
		s.AvgSaved += float64(m.ArticlesSaved)
	}
	s.AvgDuration = total / time.Duration(len(runs))
	s.AvgFound /= float64(len(runs))
	s.AvgSaved /= float64(len(runs))
	s.Fastest = fastest
	return s
}
