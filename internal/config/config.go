package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Source is one job board or ATS feed. Kind selects the adapter:
// anchorscan (default) uses URL as a {keyword}/{country} template,
// workday uses URL as the board address, and lever, smartrecruiters and
// greenhouse use Slug.
type Source struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind,omitempty"`
	URL  string `yaml:"url,omitempty"`
	Slug string `yaml:"slug,omitempty"`
}

type Config struct {
	App struct {
		DataDir  string `yaml:"data_dir" env:"VISAHUNT_DATA_DIR"`
		LogLevel string `yaml:"log_level" env:"VISAHUNT_LOG_LEVEL"`
		DryRun   bool   `yaml:"dry_run" env:"VISAHUNT_DRY_RUN"`
		Schedule string `yaml:"schedule" env:"VISAHUNT_SCHEDULE"` // cron spec for `schedule`
		Listen   string `yaml:"listen" env:"VISAHUNT_LISTEN"`

		// per-subscriber queue on /events
		EventBuffer int `yaml:"event_buffer"`
	} `yaml:"app"`

	Search struct {
		Keywords  []string `yaml:"keywords" env:"VISAHUNT_KEYWORDS"`
		Countries []string `yaml:"countries" env:"VISAHUNT_COUNTRIES"`
	} `yaml:"search"`

	Sources []Source `yaml:"sources"`

	Fetch struct {
		UserAgent     string        `yaml:"user_agent"`
		Timeout       time.Duration `yaml:"timeout"`
		MaxRetries    int           `yaml:"max_retries"`
		BackoffBase   time.Duration `yaml:"backoff_base"`
		BackoffFactor float64       `yaml:"backoff_factor"`
		RatePerSource int           `yaml:"rate_per_source"`
		RateWindow    time.Duration `yaml:"rate_window"`
		Parallelism   int           `yaml:"parallelism" env:"VISAHUNT_PARALLELISM"`
	} `yaml:"fetch"`

	Filters struct {
		SponsorshipPhrases []string `yaml:"sponsorship_phrases"`
		SeniorityTerms     []string `yaml:"seniority_terms"`
		ExcludePhrases     []string `yaml:"exclude_phrases"`
	} `yaml:"filters"`

	Store struct {
		Driver string `yaml:"driver" env:"VISAHUNT_STORE_DRIVER"` // sqlite | pgx
		DSN    string `yaml:"dsn" env:"VISAHUNT_STORE_DSN"`       // empty: <data_dir>/visahunt.db
	} `yaml:"store"`

	Outreach struct {
		Enabled     bool          `yaml:"enabled" env:"VISAHUNT_OUTREACH_ENABLED"`
		Delay       time.Duration `yaml:"delay"`
		MaxAttempts int           `yaml:"max_attempts"`
		MaxPerRun   int           `yaml:"max_per_run"`
		Recipient   string        `yaml:"recipient" env:"VISAHUNT_RECIPIENT"`
		ResumePath  string        `yaml:"resume_path" env:"VISAHUNT_RESUME_PATH"`

		Generator struct {
			Provider string `yaml:"provider" env:"VISAHUNT_GENERATOR"` // template | openai | anthropic
			Model    string `yaml:"model"`
			BaseURL  string `yaml:"base_url"`
		} `yaml:"generator"`

		Sink struct {
			Provider string `yaml:"provider" env:"VISAHUNT_SINK"` // log | smtp | imap_draft | telegram
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username" env:"VISAHUNT_SINK_USERNAME"`
			From     string `yaml:"from"`
			Mailbox  string `yaml:"mailbox"`
			ChatID   int64  `yaml:"chat_id" env:"VISAHUNT_TELEGRAM_CHAT_ID"`
			Insecure bool   `yaml:"insecure"` // plain smtp to a local relay
		} `yaml:"sink"`
	} `yaml:"outreach"`

	Mirror struct {
		XLSXPath string `yaml:"xlsx_path"`
		Sheet    string `yaml:"sheet"`
	} `yaml:"mirror"`

	Export struct {
		CSVPath string `yaml:"csv_path"`
	} `yaml:"export"`

	Metrics struct {
		PushgatewayURL string `yaml:"pushgateway_url" env:"VISAHUNT_PUSHGATEWAY_URL"`
		Job            string `yaml:"job"`
	} `yaml:"metrics"`
}

// Load reads a YAML file over the built-in defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv loads .env files (missing ones are fine) and lets environment
// variables override tagged fields.
func ApplyEnv(cfg Config, dotenvPaths ...string) (Config, error) {
	for _, p := range dotenvPaths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", p, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Resolve is the startup path: ensure a user config exists in dataDir,
// load it, apply .env and environment overrides, overlay extra sources,
// then normalize and validate.
func Resolve(dataDir, explicitPath string) (Config, Validation, error) {
	path := explicitPath
	if path == "" {
		p, err := EnsureUserConfig(dataDir)
		if err != nil {
			return Config{}, Validation{}, err
		}
		path = p
	}

	cfg, err := Load(path)
	if err != nil {
		return cfg, Validation{}, err
	}
	if cfg.App.DataDir == "" {
		cfg.App.DataDir = dataDir
	}
	cfg, err = ApplyEnv(cfg, filepath.Join(dataDir, ".env"), ".env")
	if err != nil {
		return cfg, Validation{}, err
	}
	if err := OverlaySources(&cfg, filepath.Join(cfg.App.DataDir, "sources.yml")); err != nil {
		return cfg, Validation{}, err
	}

	cfg, v := NormalizeAndValidate(cfg)
	if !v.OK() {
		return cfg, v, v.Err()
	}
	return cfg, v, nil
}

func (c Config) StorePath() string {
	return filepath.Join(c.App.DataDir, "visahunt.db")
}

func (c Config) LockPath() string {
	return filepath.Join(c.App.DataDir, "visahunt.lock")
}

func (c Config) dataFile(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.App.DataDir, p)
}

func (c Config) CSVPath() string    { return c.dataFile(c.Export.CSVPath) }
func (c Config) XLSXPath() string   { return c.dataFile(c.Mirror.XLSXPath) }
func (c Config) ResumeFile() string { return c.dataFile(c.Outreach.ResumePath) }
