package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luanbrandao/newswatch/internal/bench"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Run a single scrape and persist new articles.",
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

			sc, err := buildScraper(cfg, st, bench.NopRecorder{}, logger)
			if err != nil {
				return err
			}

			found, saved, err := sc.Scrape(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("scrape finished",
				zap.Int("found", found),
				zap.Int("saved", saved),
			)
			cmd.Printf("scrape completed: %d found, %d new\n", found, saved)
			return nil
		},
	}
}
