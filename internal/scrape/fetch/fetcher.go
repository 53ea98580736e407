// Package fetch performs rate-limited, retried HTTP fetches for planned tasks.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/logger"
	"visahunt-engine/internal/scrape/util"
)

// ErrNotStarted is returned when the run was stopped before the task made
// its first request. Such tasks are skipped, not failed.
var ErrNotStarted = errors.New("fetch not started")

const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

type Config struct {
	UserAgent     string
	Timeout       time.Duration
	MaxRetries    int
	BackoffBase   time.Duration
	BackoffFactor float64
	MaxBodyBytes  int64
}

func (c Config) WithDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = 2
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 8 << 20
	}
	return c
}

type Fetcher struct {
	hc      Doer
	limiter *util.SourceLimiter
	cfg     Config
	log     logger.Logger
	sleep   func(context.Context, time.Duration) error
}

type Option func(*Fetcher)

// WithSleep replaces the backoff sleep. Tests use it to avoid real waits.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(f *Fetcher) { f.sleep = fn }
}

func New(hc Doer, limiter *util.SourceLimiter, cfg Config, log logger.Logger, opts ...Option) *Fetcher {
	if hc == nil {
		hc = http.DefaultClient
	}
	f := &Fetcher{
		hc:      hc,
		limiter: limiter,
		cfg:     cfg.WithDefaults(),
		log:     log.With(logger.Component("fetch")),
		sleep:   sleepCtx,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch runs one task. A returned error is either *domain.FetchFailure or
// ErrNotStarted. Once ctx is done no further attempt is made, but a request
// already on the wire runs to completion or to its own timeout.
func (f *Fetcher) Fetch(ctx context.Context, task domain.FetchTask, spec domain.RequestSpec) (domain.RawResponse, error) {
	if ctx.Err() != nil {
		return domain.RawResponse{}, ErrNotStarted
	}

	var last *domain.FetchFailure
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := f.backoff(attempt)
			f.log.Debug("retrying",
				logger.String("source", task.SourceID),
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Error(last))
			if err := f.sleep(ctx, delay); err != nil {
				return domain.RawResponse{}, last
			}
		}

		release, err := f.limiter.Acquire(ctx, task.SourceID)
		if err != nil {
			if last == nil {
				return domain.RawResponse{}, ErrNotStarted
			}
			return domain.RawResponse{}, last
		}
		raw, fail, final := f.do(ctx, task, spec)
		release()

		if fail == nil {
			return raw, nil
		}
		last = fail
		if final || !fail.Retryable() {
			break
		}
	}
	return domain.RawResponse{}, last
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	return time.Duration(float64(f.cfg.BackoffBase) * math.Pow(f.cfg.BackoffFactor, float64(attempt-1)))
}

func (f *Fetcher) do(ctx context.Context, task domain.FetchTask, spec domain.RequestSpec) (domain.RawResponse, *domain.FetchFailure, bool) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.cfg.Timeout)
	defer cancel()

	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}
	var reqBody io.Reader
	if spec.Body != nil {
		reqBody = bytes.NewReader(spec.Body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, spec.URL, reqBody)
	if err != nil {
		// a bad URL will not get better on retry
		return domain.RawResponse{}, &domain.FetchFailure{Task: task, Kind: domain.FailureConnection, Message: err.Error()}, true
	}
	for k, vs := range spec.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	res, err := f.hc.Do(req)
	if err != nil {
		return domain.RawResponse{}, classify(task, err), false
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
		return domain.RawResponse{}, &domain.FetchFailure{
			Task:    task,
			Kind:    domain.FailureHTTP,
			Status:  res.StatusCode,
			Message: res.Status,
		}, true
	}

	// one byte over the limit tells a cut body from one that fits exactly
	body, err := io.ReadAll(io.LimitReader(res.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return domain.RawResponse{}, classify(task, fmt.Errorf("read body: %w", err)), false
	}
	truncated := int64(len(body)) > f.cfg.MaxBodyBytes
	if truncated {
		body = body[:f.cfg.MaxBodyBytes]
		f.log.Warn("response body truncated",
			logger.String("source", task.SourceID),
			logger.String("url", spec.URL),
			logger.Int("limit_bytes", int(f.cfg.MaxBodyBytes)))
	}

	finalURL := spec.URL
	if res.Request != nil && res.Request.URL != nil {
		finalURL = res.Request.URL.String()
	}
	return domain.RawResponse{
		Task:      task,
		URL:       finalURL,
		Status:    res.StatusCode,
		Body:      body,
		FetchedAt: time.Now().UTC(),
		Truncated: truncated,
	}, nil, false
}

func classify(task domain.FetchTask, err error) *domain.FetchFailure {
	kind := domain.FailureConnection
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		kind = domain.FailureTimeout
	}
	return &domain.FetchFailure{Task: task, Kind: kind, Message: err.Error()}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
