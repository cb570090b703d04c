package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luanbrandao/newswatch/internal/loadtest"
	"github.com/luanbrandao/newswatch/internal/report"
)

func newLoadTestCmd() *cobra.Command {
	var (
		baseURL  string
		scenario string
		users    int
		requests int
	)

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Run a concurrent-user load test against a running API.",
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

			if baseURL == "" {
				baseURL = cfg.LoadTest.BaseURL
			}
			if scenario == "" {
				scenario = cfg.LoadTest.Scenario
			}

			profile, ok := loadtest.Scenarios[scenario]
			if !ok {
				return fmt.Errorf("unknown scenario %q (want light, medium, heavy or stress)", scenario)
			}
			if users > 0 {
				profile.Users = users
			}
			if requests > 0 {
				profile.RequestsPerUser = requests
			}

			client := &http.Client{Timeout: fetchTimeoutClientBudget(cfg)}
			if err := loadtest.CheckTarget(cmd.Context(), client, baseURL); err != nil {
				return fmt.Errorf("pre-check failed, is the server running? %w", err)
			}

			gen, err := loadtest.New(loadtest.Options{
				BaseURL:         baseURL,
				Users:           profile.Users,
				RequestsPerUser: profile.RequestsPerUser,
				Delay:           time.Duration(cfg.LoadTest.DelayMs) * time.Millisecond,
				Client:          client,
				Logger:          logger.Named("loadtest"),
			})
			if err != nil {
				return err
			}

			m, err := gen.Run(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("load test finished",
				zap.String("scenario", scenario),
				zap.Int("requests", m.TotalRequests()),
			)

			r := report.Build(m)
			if err := r.WriteText(cmd.OutOrStdout()); err != nil {
				return err
			}
			jsonPath, mdPath, err := r.Save(cfg.Report.Dir)
			if err != nil {
				return err
			}
			cmd.Printf("\nreports written: %s, %s\n", jsonPath, mdPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "base URL of the running API (defaults to config)")
	cmd.Flags().StringVar(&scenario, "scenario", "", "load profile: light, medium, heavy or stress")
	cmd.Flags().IntVar(&users, "users", 0, "override the scenario's concurrent user count")
	cmd.Flags().IntVar(&requests, "requests", 0, "override the scenario's requests per user")
	return cmd
}
