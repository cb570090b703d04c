package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luanbrandao/newswatch/internal/api"
	"github.com/luanbrandao/newswatch/internal/bench"
	"github.com/luanbrandao/newswatch/internal/scraper"
)

func newServeCmd() *cobra.Command {
	var noScrapeLoop bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the periodic scrape loop.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			defer syncLogger(logger)

			st, err := buildStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			sc, err := buildScraper(cfg, st, bench.NopRecorder{}, logger.Named("scraper"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			apiServer := api.NewServer(st, sc, logger.Named("api"))
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           apiServer.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				logger.Info("http server started", zap.Int("port", cfg.Server.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})

			if !noScrapeLoop {
				g.Go(func() error {
					runScrapeLoop(gctx, sc, cfg.ScrapeInterval(), logger)
					return nil
				})
			}

			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutdown initiated")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("server shutdown: %w", err)
				}
				return nil
			})

			err = g.Wait()
			logger.Info("shutdown complete")
			return err
		},
	}

	cmd.Flags().BoolVar(&noScrapeLoop, "no-scrape-loop", false, "serve the API without the background scrape loop")
	return cmd
}

// runScrapeLoop scrapes once immediately and then on every tick until the
// context is canceled. Failures are logged and the loop keeps going.
func runScrapeLoop(ctx context.Context, sc *scraper.Scraper, interval time.Duration, logger *zap.Logger) {
	scrapeOnce := func() {
		if _, _, err := sc.Scrape(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scheduled scrape failed", zap.Error(err))
		}
	}

	scrapeOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			scrapeOnce()
		case <-ctx.Done():
			return
		}
	}
}
