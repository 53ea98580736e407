package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"visahunt-engine/internal/config"
	"visahunt-engine/internal/events"
	"visahunt-engine/internal/logger"
	"visahunt-engine/internal/metrics"
	"visahunt-engine/internal/mirror"
	"visahunt-engine/internal/outreach"
	"visahunt-engine/internal/outreach/generate"
	"visahunt-engine/internal/outreach/sink"
	"visahunt-engine/internal/poll"
	"visahunt-engine/internal/scrape"
	"visahunt-engine/internal/scrape/fetch"
	"visahunt-engine/internal/scrape/util"
	"visahunt-engine/internal/secrets"
	"visahunt-engine/internal/store"
)

// app is everything a command needs once startup succeeded.
type app struct {
	cfg     config.Config
	log     logger.Logger
	store   *store.JobStore
	runner  *poll.Runner
	metrics *metrics.Metrics
	hub     *events.Hub
}

// open loads config and opens the store. A config or store failure is
// fatal; an outreach misconfiguration only disables outreach.
func (f *rootFlags) open(ctx context.Context) (*app, error) {
	cfg, log, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	js, err := openStore(ctx, cfg, log, true)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	adapters, err := scrape.BuildAdapters(cfg.Sources)
	if err != nil {
		_ = js.Close()
		_ = log.Sync()
		return nil, err
	}

	limiter := util.NewSourceLimiter(cfg.Fetch.RatePerSource, cfg.Fetch.RateWindow)
	fetcher := fetch.New(&http.Client{}, limiter, fetch.Config{
		UserAgent:     cfg.Fetch.UserAgent,
		Timeout:       cfg.Fetch.Timeout,
		MaxRetries:    cfg.Fetch.MaxRetries,
		BackoffBase:   cfg.Fetch.BackoffBase,
		BackoffFactor: cfg.Fetch.BackoffFactor,
	}, log)

	filter := scrape.NewFilter(cfg.Filters.SponsorshipPhrases, cfg.Filters.SeniorityTerms, cfg.Filters.ExcludePhrases)
	m := metrics.New()
	hub := events.NewHub(cfg.App.EventBuffer)

	deps := poll.Deps{
		Store:    js,
		Fetcher:  fetcher,
		Adapters: adapters,
		Filter:   filter,
		Metrics:  m,
		Hub:      hub,
		Log:      log,
	}
	if cfg.Outreach.Enabled {
		if o, err := buildOutreach(cfg, js, log); err != nil {
			log.Warn("outreach disabled", logger.Error(err))
		} else {
			deps.Outreach = o
		}
	}
	if p := cfg.XLSXPath(); p != "" {
		sheet := cfg.Mirror.Sheet
		deps.OpenMirror = func() (mirror.Mirror, error) { return mirror.OpenXLSX(p, sheet) }
	}

	r := poll.NewRunner(deps, poll.Settings{
		Keywords:       cfg.Search.Keywords,
		Countries:      cfg.Search.Countries,
		Parallelism:    cfg.Fetch.Parallelism,
		PerSource:      cfg.Fetch.RatePerSource,
		DryRun:         cfg.App.DryRun,
		CSVPath:        cfg.CSVPath(),
		PushgatewayURL: cfg.Metrics.PushgatewayURL,
		MetricsJob:     cfg.Metrics.Job,
	})

	return &app{cfg: cfg, log: log, store: js, runner: r, metrics: m, hub: hub}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", logger.Error(err))
	}
	_ = a.log.Sync()
}

// openStore opens the configured store. Read-only callers pass lock=false
// so they can look at a store a scheduler is running against.
func openStore(ctx context.Context, cfg config.Config, log logger.Logger, lock bool) (*store.JobStore, error) {
	opts := store.Options{Driver: cfg.Store.Driver, Target: cfg.Store.DSN}
	if opts.Target == "" {
		opts.Target = cfg.StorePath()
	}
	if lock {
		opts.LockPath = cfg.LockPath()
	}
	js, err := store.OpenJobStore(ctx, opts, log)
	if errors.Is(err, store.ErrLocked) {
		return nil, fmt.Errorf("open store: another run holds %s", cfg.LockPath())
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return js, nil
}

func buildOutreach(cfg config.Config, js *store.JobStore, log logger.Logger) (*outreach.Scheduler, error) {
	oc := cfg.Outreach

	gs := generate.Settings{Provider: oc.Generator.Provider, Model: oc.Generator.Model, BaseURL: oc.Generator.BaseURL}
	switch gs.Provider {
	case generate.ProviderOpenAI:
		key, err := secrets.Get(secrets.OpenAIKey)
		if err != nil {
			return nil, err
		}
		gs.APIKey = key
	case generate.ProviderAnthropic:
		key, err := secrets.Get(secrets.AnthropicKey)
		if err != nil {
			return nil, err
		}
		gs.APIKey = key
	}
	gen, err := generate.New(gs)
	if err != nil {
		return nil, err
	}

	ss := sink.Settings{
		Provider: oc.Sink.Provider,
		Host:     oc.Sink.Host,
		Port:     oc.Sink.Port,
		Username: oc.Sink.Username,
		From:     oc.Sink.From,
		Mailbox:  oc.Sink.Mailbox,
		ChatID:   oc.Sink.ChatID,
		Insecure: oc.Sink.Insecure,
	}
	switch ss.Provider {
	case sink.ProviderSMTP, sink.ProviderIMAPDraft:
		pw, err := secrets.Get(secrets.SMTPPassword)
		if err != nil {
			return nil, err
		}
		ss.Password = pw
	case sink.ProviderTelegram:
		tok, err := secrets.Get(secrets.TelegramToken)
		if err != nil {
			return nil, err
		}
		ss.Password = tok
	}
	snk, err := sink.New(ss, log)
	if err != nil {
		return nil, err
	}

	resume, err := outreach.LoadResume(cfg.ResumeFile())
	if err != nil {
		return nil, err
	}
	if resume == "" {
		log.Warn("resume is empty", logger.String("path", cfg.ResumeFile()))
	}

	return outreach.New(js, gen, snk, outreach.Config{
		Delay:       oc.Delay,
		MaxAttempts: oc.MaxAttempts,
		MaxPerRun:   oc.MaxPerRun,
		Recipient:   oc.Recipient,
		Resume:      resume,
	}, log), nil
}
