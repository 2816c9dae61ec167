// Package config holds the explicit runtime configuration for the events
// pipeline. A Config value is constructed once (YAML file plus environment
// overrides) and passed to each component at construction time; nothing in
// the process reads settings globally.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EmailProvider selects which concrete email sender is constructed.
type EmailProvider string

const (
	ProviderResend   EmailProvider = "resend"
	ProviderSendGrid EmailProvider = "sendgrid"
)

// Config is the full runtime configuration.
type Config struct {
	AppName      string `yaml:"app_name"`
	DatabasePath string `yaml:"database_path"`
	ListenAddr   string `yaml:"listen_addr"`

	ScrapeURL      string `yaml:"scrape_url"`
	ScrapeSchedule string `yaml:"scrape_schedule"`

	DetailConcurrency int `yaml:"detail_concurrency"`
	DetailTimeoutSecs int `yaml:"detail_timeout_seconds"`

	// Domains whose pages are treated as blocked without inspection
	// (login walls, social networks). Matched by host suffix.
	BlockedDomains []string `yaml:"blocked_domains"`

	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`

	SearchAPIKey string `yaml:"search_api_key"`

	EmailProvider  EmailProvider `yaml:"email_provider"`
	ResendAPIKey   string        `yaml:"resend_api_key"`
	SendGridAPIKey string        `yaml:"sendgrid_api_key"`
	EmailFrom      string        `yaml:"email_from"`

	TelegramBotToken string `yaml:"telegram_bot_token"`

	Debug bool `yaml:"debug"`
}

// Default returns the baseline configuration before file and environment
// overrides are applied.
func Default() Config {
	return Config{
		AppName:           "DataTalk Events",
		DatabasePath:      "data/app.db",
		ListenAddr:        ":8080",
		ScrapeURL:         "https://datatalk.cz/kalendar-akci/",
		ScrapeSchedule:    "0 8 * * 1",
		DetailConcurrency: 5,
		DetailTimeoutSecs: 15,
		BlockedDomains: []string{
			"facebook.com",
			"instagram.com",
			"linkedin.com",
			"twitter.com",
			"x.com",
		},
		OpenAIModel:   "gpt-4o-mini",
		EmailProvider: ProviderResend,
		EmailFrom:     "events@datatalk.cz",
	}
}

// Load reads the config file at path (if it exists), applies environment
// overrides, and validates the result. A missing file is not an error; the
// defaults plus environment are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays DATATALK_-prefixed environment variables on the config.
func (c *Config) applyEnv() {
	setStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr("DATATALK_DATABASE_PATH", &c.DatabasePath)
	setStr("DATATALK_LISTEN_ADDR", &c.ListenAddr)
	setStr("DATATALK_SCRAPE_URL", &c.ScrapeURL)
	setStr("DATATALK_SCRAPE_SCHEDULE", &c.ScrapeSchedule)
	setStr("DATATALK_OPENAI_API_KEY", &c.OpenAIAPIKey)
	setStr("DATATALK_OPENAI_MODEL", &c.OpenAIModel)
	setStr("DATATALK_SEARCH_API_KEY", &c.SearchAPIKey)
	setStr("DATATALK_RESEND_API_KEY", &c.ResendAPIKey)
	setStr("DATATALK_SENDGRID_API_KEY", &c.SendGridAPIKey)
	setStr("DATATALK_EMAIL_FROM", &c.EmailFrom)
	setStr("DATATALK_TELEGRAM_BOT_TOKEN", &c.TelegramBotToken)

	if v := os.Getenv("DATATALK_EMAIL_PROVIDER"); v != "" {
		c.EmailProvider = EmailProvider(strings.ToLower(v))
	}
	if v := os.Getenv("DATATALK_DETAIL_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.DetailConcurrency = n
		}
	}
	if v := os.Getenv("DATATALK_DETAIL_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.DetailTimeoutSecs = n
		}
	}
	if v := os.Getenv("DATATALK_DEBUG"); v != "" {
		c.Debug = v == "1" || strings.EqualFold(v, "true")
	}
}

func (c *Config) validate() error {
	if c.ScrapeURL == "" {
		return fmt.Errorf("scrape_url must be set")
	}
	if c.DetailConcurrency <= 0 {
		c.DetailConcurrency = 5
	}
	if c.DetailTimeoutSecs <= 0 {
		c.DetailTimeoutSecs = 15
	}
	switch c.EmailProvider {
	case ProviderResend, ProviderSendGrid:
	default:
		return fmt.Errorf("unknown email_provider: %q", c.EmailProvider)
	}
	return nil
}
