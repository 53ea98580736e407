package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

func (v Validation) OK() bool { return len(v.Errors) == 0 }

func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return fmt.Errorf("config validation failed:\n- %s", strings.Join(v.Errors, "\n- "))
}

// Validate checks hard constraints; every problem is reported, not just the first.
func Validate(cfg Config) error {
	var err error
	fail := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf(format, args...))
	}

	seen := map[string]bool{}
	for i, s := range cfg.Sources {
		id := strings.ToLower(strings.TrimSpace(s.ID))
		if id == "" {
			fail("sources[%d].id is required", i)
			continue
		}
		if seen[id] {
			fail("sources[%d].id %q is duplicated", i, s.ID)
		}
		seen[id] = true

		switch strings.ToLower(s.Kind) {
		case "", "anchorscan", "workday":
			u, perr := url.Parse(s.URL)
			if perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				fail("sources[%d] (%s): url must be an absolute http(s) url", i, s.ID)
			}
		case "lever", "smartrecruiters", "greenhouse":
			if strings.TrimSpace(s.Slug) == "" {
				fail("sources[%d] (%s): slug is required for kind %s", i, s.ID, s.Kind)
			}
		default:
			fail("sources[%d] (%s): unknown kind %q", i, s.ID, s.Kind)
		}
	}

	if spec := strings.TrimSpace(cfg.App.Schedule); spec != "" {
		if _, perr := cron.ParseStandard(spec); perr != nil {
			fail("app.schedule %q: %v", spec, perr)
		}
	}

	f := cfg.Fetch
	if f.RatePerSource < 1 {
		fail("fetch.rate_per_source must be >= 1")
	}
	if f.RateWindow <= 0 {
		fail("fetch.rate_window must be > 0")
	}
	if f.Parallelism < 1 {
		fail("fetch.parallelism must be >= 1")
	}
	if f.MaxRetries < 0 || f.MaxRetries > 10 {
		fail("fetch.max_retries must be 0..10")
	}
	if f.Timeout <= 0 {
		fail("fetch.timeout must be > 0")
	}
	if f.BackoffFactor < 1 {
		fail("fetch.backoff_factor must be >= 1")
	}

	switch cfg.Store.Driver {
	case "sqlite":
	case "pgx":
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			fail("store.dsn is required for driver pgx")
		}
	default:
		fail("store.driver must be sqlite or pgx, got %q", cfg.Store.Driver)
	}

	o := cfg.Outreach
	if o.Delay < 0 {
		fail("outreach.delay must be >= 0")
	}
	if o.MaxAttempts < 1 {
		fail("outreach.max_attempts must be >= 1")
	}
	if o.MaxPerRun < 0 {
		fail("outreach.max_per_run must be >= 0")
	}
	switch o.Generator.Provider {
	case "template", "openai", "anthropic":
	default:
		fail("outreach.generator.provider %q is not one of template, openai, anthropic", o.Generator.Provider)
	}
	switch o.Sink.Provider {
	case "log":
	case "smtp", "imap_draft":
		if strings.TrimSpace(o.Sink.Host) == "" || o.Sink.Port <= 0 || o.Sink.Port > 65535 {
			fail("outreach.sink.host and port are required for %s", o.Sink.Provider)
		}
		if strings.TrimSpace(o.Sink.Username) == "" {
			fail("outreach.sink.username is required for %s", o.Sink.Provider)
		}
	case "telegram":
	default:
		fail("outreach.sink.provider %q is not one of log, smtp, imap_draft, telegram", o.Sink.Provider)
	}

	return err
}

// NormalizeAndValidate returns a cleaned copy of cfg (trimmed, de-duplicated
// lists) along with every error and warning found.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Search.Keywords = trimList(out.Search.Keywords)
	out.Search.Countries = trimList(out.Search.Countries)
	out.Filters.SponsorshipPhrases = trimList(out.Filters.SponsorshipPhrases)
	out.Filters.SeniorityTerms = trimList(out.Filters.SeniorityTerms)
	out.Filters.ExcludePhrases = trimList(out.Filters.ExcludePhrases)
	out.Sources = append([]Source(nil), out.Sources...)
	for i := range out.Sources {
		out.Sources[i].ID = strings.TrimSpace(out.Sources[i].ID)
		out.Sources[i].URL = strings.TrimSpace(out.Sources[i].URL)
	}

	for _, e := range multierr.Errors(Validate(out)) {
		res.Errors = append(res.Errors, e.Error())
	}

	if len(out.Search.Keywords) == 0 || len(out.Search.Countries) == 0 || len(out.Sources) == 0 {
		res.addWarn("keywords, countries and sources must all be non-empty for a run to fetch anything")
	}
	if out.Fetch.Parallelism > 50 {
		res.addWarn("fetch.parallelism is very high (%d) and may get you blocked.", out.Fetch.Parallelism)
	}
	if out.Outreach.Enabled && out.Outreach.Delay < 5*time.Second {
		res.addWarn("outreach.delay is below 5s; mail providers may throttle.")
	}
	if out.Outreach.Enabled && strings.TrimSpace(out.Outreach.Recipient) == "" {
		res.addWarn("outreach.recipient is empty; outreach will fail every record.")
	}

	return out, res
}

func trimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}
