package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/datatalk-cz/events-bot/internal/config"
	"github.com/datatalk-cz/events-bot/internal/detail"
	"github.com/datatalk-cz/events-bot/internal/extractor"
	"github.com/datatalk-cz/events-bot/internal/logger"
	"github.com/datatalk-cz/events-bot/internal/metrics"
	"github.com/datatalk-cz/events-bot/internal/notify"
	"github.com/datatalk-cz/events-bot/internal/pipeline"
	"github.com/datatalk-cz/events-bot/internal/scraper"
	"github.com/datatalk-cz/events-bot/internal/search"
	"github.com/datatalk-cz/events-bot/internal/store"
)

var (
	flagConfig  string
	flagVerbose bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "datatalk-events",
		Short: "Scrape datatalk.cz events and notify subscribers",
		Long: `Scrapes the datatalk.cz event calendar, enriches each event from its
detail page, extracts structured records, and notifies verified subscribers
via email and Telegram about events they have not seen yet.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "Path to YAML config file")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	root.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newEventsCmd(),
		newRunsCmd(),
		newExportCmd(),
		newSubscribersCmd(),
	)
	return root
}

// setup loads configuration and builds the logger shared by all commands.
func setup() (config.Config, *logger.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, nil, err
	}
	level := logger.LevelInfo
	if flagVerbose || cfg.Debug {
		level = logger.LevelDebug
	}
	return cfg, logger.New(level, os.Stdout), nil
}

// buildPipeline wires the full pipeline from configuration. m may be nil
// for one-shot runs.
func buildPipeline(cfg config.Config, log *logger.Logger, m *metrics.Metrics) (*pipeline.Pipeline, *store.Store, error) {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	var searchClient search.Client
	if cfg.SearchAPIKey != "" {
		searchClient = search.NewBrave(cfg.SearchAPIKey)
	}

	fetcher := detail.New(
		cfg.DetailConcurrency,
		time.Duration(cfg.DetailTimeoutSecs)*time.Second,
		cfg.BlockedDomains,
		searchClient,
		log,
	)

	deps := pipeline.Deps{
		Store:     st,
		Scraper:   scraper.New(cfg.ScrapeURL, log),
		Details:   fetcher,
		Extractor: extractor.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, log),
		Email:     notify.NewEmailSender(cfg, log),
		Metrics:   m,
		Log:       log,
	}

	tg, err := notify.NewTelegram(cfg.TelegramBotToken, log)
	if err != nil {
		return nil, nil, err
	}
	if tg != nil {
		deps.Telegram = tg
	}

	return pipeline.New(deps), st, nil
}
