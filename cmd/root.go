// Package cmd defines the newswatch command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luanbrandao/newswatch/internal/bench"
	"github.com/luanbrandao/newswatch/internal/config"
	"github.com/luanbrandao/newswatch/internal/fetch"
	"github.com/luanbrandao/newswatch/internal/logging"
	"github.com/luanbrandao/newswatch/internal/metrics"
	"github.com/luanbrandao/newswatch/internal/news"
	"github.com/luanbrandao/newswatch/internal/scraper"
	"github.com/luanbrandao/newswatch/internal/store"
	"github.com/luanbrandao/newswatch/internal/store/memory"
	"github.com/luanbrandao/newswatch/internal/store/postgres"
	"github.com/luanbrandao/newswatch/internal/store/sqlite"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newswatch",
		Short: "News scraping service with a benchmark and load test harness.",
		Long: `newswatch periodically scrapes a news homepage, persists newly seen
articles and serves them over a small HTTP API. It also ships a
measurement harness: instrumented scrape benchmarks and concurrent-user
load tests with latency percentiles and resource usage reports.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newLoadTestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "newswatch: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(cfgFile)
}

func buildLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func buildStore(cfg config.Config) (store.ArticleStore, error) {
	switch cfg.DB.Driver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		s, err := sqlite.Open(cfg.DB.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		return openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}

func openPostgres(cfg config.Config) (store.ArticleStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: int32(cfg.DB.MaxOpenConns),
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func buildScraper(cfg config.Config, st store.ArticleStore, rec bench.Recorder, logger *zap.Logger) (*scraper.Scraper, error) {
	extractor, err := news.NewExtractor(cfg.Scraper.URL, cfg.Scraper.HostToken, cfg.Scraper.Selectors)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}
	collyFetcher := fetch.NewCollyFetcher(fetch.CollyConfig{
		UserAgent:      cfg.Scraper.UserAgent,
		Timeout:        cfg.FetchTimeout(),
		ConnectTimeout: cfg.ConnectTimeout(),
	})
	client := fetch.NewClient(collyFetcher, fetch.Config{
		MaxRetries: cfg.Scraper.MaxRetries,
		RetryDelay: cfg.RetryDelay(),
	}, rec, logger)
	return scraper.New(cfg.Scraper.URL, client, extractor, st, logger)
}

func init() {
	metrics.Init()
}

// syncLogger flushes buffered log entries at process exit. Sync on stderr
// returns an error on some platforms, which is fine to ignore.
func syncLogger(logger *zap.Logger) {
	_ = logger.Sync()
}

func fetchTimeoutClientBudget(cfg config.Config) time.Duration {
	return time.Duration(cfg.LoadTest.TimeoutSeconds) * time.Second
}
