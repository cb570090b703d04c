package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luanbrandao/newswatch/internal/bench"
	"github.com/luanbrandao/newswatch/internal/report"
)

func newBenchCmd() *cobra.Command {
	var iterations int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the scrape pipeline with resource measurements.",
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

			runner, err := bench.NewScrapeBenchmark(func(rec bench.Recorder) (bench.ScrapePipeline, error) {
				return buildScraper(cfg, st, rec, logger.Named("bench"))
			}, iterations, 0, logger)
			if err != nil {
				return err
			}

			runs, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			summary := bench.Summarize(runs)
			logger.Info("benchmark finished",
				zap.Int("iterations", iterations),
				zap.Int("successful", summary.Runs),
				zap.Duration("avg_duration", summary.AvgDuration),
				zap.Float64("avg_found", summary.AvgFound),
				zap.Float64("avg_saved", summary.AvgSaved),
			)

			fastest := report.Build(runs[summary.Fastest])
			if err := fastest.WriteText(cmd.OutOrStdout()); err != nil {
				return err
			}
			jsonPath, mdPath, err := fastest.Save(cfg.Report.Dir)
			if err != nil {
				return err
			}
			cmd.Printf("\nreports written: %s, %s\n", jsonPath, mdPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&iterations, "iterations", 3, "number of benchmark iterations")
	return cmd
}
