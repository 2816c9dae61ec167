package cli

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/datatalk-cz/events-bot/internal/logger"
	"github.com/datatalk-cz/events-bot/internal/metrics"
)

// newRunCmd runs the pipeline once and exits.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one scrape-and-notify pipeline pass",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			p, _, err := buildPipeline(cfg, log, nil)
			if err != nil {
				return err
			}
			return p.Run(cmd.Context())
		},
	}
}

// newServeCmd runs the pipeline on the configured cron schedule and serves
// prometheus metrics until the process is stopped.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run on the configured schedule with a metrics endpoint",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			m, reg := metrics.New()
			p, _, err := buildPipeline(cfg, log, m)
			if err != nil {
				return err
			}

			c := cron.New()
			_, err = c.AddFunc(cfg.ScrapeSchedule, func() {
				if err := p.Run(context.Background()); err != nil {
					log.Error("scheduled run failed", nil, err)
				}
			})
			if err != nil {
				return fmt.Errorf("invalid scrape schedule %q: %w", cfg.ScrapeSchedule, err)
			}
			c.Start()
			defer c.Stop()

			log.Info("scheduler started", logger.Fields{
				"schedule":    cfg.ScrapeSchedule,
				"listen_addr": cfg.ListenAddr,
			})
			return metrics.Serve(cfg.ListenAddr, reg)
		},
	}
}
