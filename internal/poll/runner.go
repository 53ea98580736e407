// Package poll runs the pipeline: plan, collect, merge, store, mirror,
// apply and export.
package poll

import (
	"context"
	"encoding/json"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/events"
	"visahunt-engine/internal/export"
	"visahunt-engine/internal/logger"
	"visahunt-engine/internal/metrics"
	"visahunt-engine/internal/mirror"
	"visahunt-engine/internal/outreach"
	"visahunt-engine/internal/plan"
	"visahunt-engine/internal/scrape"
	"visahunt-engine/internal/scrape/types"
	"visahunt-engine/internal/store"
)

type Store interface {
	Upsert(ctx context.Context, p domain.JobPosting) (bool, error)
	All() []domain.Record
	SaveRun(ctx context.Context, r store.RunRecord) error
}

type Outreach interface {
	Run(ctx context.Context) outreach.Result
}

// Deps are the collaborators of a Runner. Outreach, OpenMirror, Metrics
// and Hub are optional.
type Deps struct {
	Store    Store
	Fetcher  scrape.TaskFetcher
	Adapters []types.Adapter
	Filter   scrape.Filter
	Outreach Outreach
	Metrics  *metrics.Metrics
	Hub      *events.Hub
	Log      logger.Logger

	// OpenMirror is called once per run; the mirror is closed at the end.
	OpenMirror func() (mirror.Mirror, error)
}

type Settings struct {
	Keywords    []string
	Countries   []string
	Parallelism int
	PerSource   int
	DryRun      bool
	CSVPath     string

	PushgatewayURL string
	MetricsJob     string
}

// Status is the live view of the runner.
type Status struct {
	Running     bool       `json:"running"`
	RunID       string     `json:"run_id,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastOkAt    *time.Time `json:"last_ok_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastSummary *Summary   `json:"last_summary,omitempty"`
}

type Runner struct {
	deps     Deps
	settings Settings
	collect  *scrape.Collector
	log      logger.Logger
	now      func() time.Time

	running atomic.Bool
	mu      sync.RWMutex
	status  Status
}

func NewRunner(deps Deps, s Settings) *Runner {
	if deps.OpenMirror == nil {
		deps.OpenMirror = func() (mirror.Mirror, error) { return mirror.Nop{}, nil }
	}
	log := deps.Log.With(logger.Component("pipeline"))
	return &Runner{
		deps:     deps,
		settings: s,
		collect:  scrape.NewCollector(deps.Fetcher, deps.Adapters, deps.Filter, s.Parallelism, s.PerSource, deps.Log),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// TryRun runs the pipeline unless a run is already in progress.
func (r *Runner) TryRun(ctx context.Context) (Summary, bool) {
	if !r.running.CompareAndSwap(false, true) {
		return Summary{}, false
	}
	defer r.running.Store(false)
	return r.RunOnce(ctx), true
}

// RunOnce executes one full batch. Individual task failures never abort
// it; once ctx is done no new fetch or dispatch starts, and everything
// gathered so far is still stored and exported.
func (r *Runner) RunOnce(ctx context.Context) Summary {
	s := Summary{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
		DryRun:    r.settings.DryRun,
	}
	log := r.log.With(logger.String("run_id", s.RunID))
	r.begin(s)
	r.deps.Hub.Publish(events.Make(events.TypeRunStarted, s.RunID, nil))

	sources := scrape.AdapterIDs(r.deps.Adapters)
	s.TasksPlanned = plan.Count(sources, r.settings.Keywords, r.settings.Countries)
	log.Info("run started",
		logger.Int("tasks", s.TasksPlanned),
		logger.Int("sources", len(sources)),
		logger.Bool("dry_run", r.settings.DryRun))

	dedup := r.gather(ctx, &s, plan.Tasks(sources, r.settings.Keywords, r.settings.Countries))
	s.Stopped = ctx.Err() != nil

	mir, err := r.deps.OpenMirror()
	if err != nil {
		log.Warn("open mirror", logger.Error(err))
		mir = mirror.Nop{}
	}

	// keep what was gathered even if the run was told to stop
	work := context.WithoutCancel(ctx)
	r.merge(work, &s, dedup, mir, log)
	r.apply(ctx, &s, mir)

	if path := r.settings.CSVPath; path != "" {
		if err := export.WriteCSV(path, r.deps.Store.All()); err != nil {
			s.addError("export %s: %v", path, err)
		}
	}
	if err := mir.Close(); err != nil {
		log.Warn("mirror close", logger.Error(err))
	}

	s.FinishedAt = r.now()
	s.Duration = s.FinishedAt.Sub(s.StartedAt)
	r.persist(work, &s, log)
	r.observe(work, s, log)
	r.finish(s)

	r.deps.Hub.Publish(events.Make(events.TypeRunFinished, s.RunID, s))
	log.Info("run finished",
		logger.Int("attempted", s.TasksAttempted),
		logger.Int("failed", s.TasksFailed),
		logger.Int("skipped", s.TasksSkipped),
		logger.Int("found", s.PostingsFound),
		logger.Int("new", s.New),
		logger.Int("applied", s.Applied),
		logger.Int("apply_failed", s.ApplyFailed),
		logger.Bool("stopped", s.Stopped),
		logger.Duration("duration", s.Duration))
	return s
}

// gather drains the collector. The deduplicator is only touched here, by
// this single consumer.
func (r *Runner) gather(ctx context.Context, s *Summary, tasks iter.Seq[domain.FetchTask]) *scrape.Deduplicator {
	out := make(chan scrape.Outcome, max(r.settings.Parallelism, 1))
	go r.collect.Run(ctx, tasks, out)

	dedup := scrape.NewDeduplicator()
	m := r.deps.Metrics
	for o := range out {
		src := o.Task.SourceID
		switch {
		case o.Skipped:
			s.TasksSkipped++
			r.count(m, src, "skipped")
			continue
		case o.Failure != nil:
			s.TasksAttempted++
			s.TasksFailed++
			s.addFailure(o.Task, o.Failure)
			r.count(m, src, "failed")
		case o.ExtractErr != nil:
			s.TasksAttempted++
			s.ExtractionErrors++
			r.count(m, src, "extract_error")
		default:
			s.TasksAttempted++
			r.count(m, src, "ok")
		}
		if m != nil && o.Elapsed > 0 {
			m.FetchDuration.WithLabelValues(src).Observe(o.Elapsed.Seconds())
		}

		s.CandidatesSeen += o.Extracted
		s.Rejected += o.Rejected
		s.Ineligible += o.Ineligible
		for _, c := range o.Candidates {
			dedup.Add(c, o.SeenAt)
		}
	}

	s.PostingsFound = dedup.Len()
	s.Deduped = dedup.Dropped()
	if m != nil {
		m.Candidates.WithLabelValues("eligible").Add(float64(s.PostingsFound + s.Deduped))
		m.Candidates.WithLabelValues("rejected").Add(float64(s.Rejected))
		m.Candidates.WithLabelValues("ineligible").Add(float64(s.Ineligible))
		m.Postings.WithLabelValues("deduped").Add(float64(s.Deduped))
	}
	return dedup
}

func (r *Runner) count(m *metrics.Metrics, source, outcome string) {
	if m != nil {
		m.Tasks.WithLabelValues(source, outcome).Inc()
	}
}

func (r *Runner) merge(ctx context.Context, s *Summary, dedup *scrape.Deduplicator, mir mirror.Mirror, log logger.Logger) {
	storeFailures := 0
	for _, p := range dedup.Postings() {
		created, err := r.deps.Store.Upsert(ctx, p)
		if err != nil {
			storeFailures++
			log.Error("upsert posting", logger.String("job_id", p.ID), logger.Error(err))
			continue
		}
		if !created {
			s.Known++
			continue
		}
		s.New++
		rec := domain.ApplicationRecord{JobID: p.ID, Status: domain.StatusNotApplied}
		if err := mir.Append(ctx, p, rec); err != nil {
			log.Warn("mirror append", logger.String("job_id", p.ID), logger.Error(err))
		}
		r.deps.Hub.Publish(events.Make(events.TypeJobCreated, s.RunID, p))
	}
	if storeFailures > 0 {
		s.addError("%d postings could not be stored", storeFailures)
	}
	if m := r.deps.Metrics; m != nil {
		m.Postings.WithLabelValues("new").Add(float64(s.New))
		m.Postings.WithLabelValues("known").Add(float64(s.Known))
	}
}

func (r *Runner) apply(ctx context.Context, s *Summary, mir mirror.Mirror) {
	switch {
	case r.settings.DryRun:
		s.OutreachSkipped = "dry run"
		return
	case ctx.Err() != nil:
		s.OutreachSkipped = "stopped"
		return
	case r.deps.Outreach == nil:
		s.OutreachSkipped = "disabled"
		return
	}

	res := r.deps.Outreach.Run(ctx)
	s.Applied, s.ApplyFailed, s.ApplyPending = res.Applied, res.Failed, res.Pending

	work := context.WithoutCancel(ctx)
	for _, rec := range res.Updated {
		if err := mir.Append(work, rec.Posting, rec.Application); err != nil {
			r.log.Warn("mirror update", logger.String("job_id", rec.Posting.ID), logger.Error(err))
		}
		r.deps.Hub.Publish(events.Make(events.TypeApplication, s.RunID, rec))
	}
	if m := r.deps.Metrics; m != nil {
		m.Outreach.WithLabelValues(string(domain.StatusApplied)).Add(float64(res.Applied))
		m.Outreach.WithLabelValues(string(domain.StatusFailed)).Add(float64(res.Failed))
	}
}

func (r *Runner) persist(ctx context.Context, s *Summary, log logger.Logger) {
	b, err := json.Marshal(s)
	if err != nil {
		log.Error("encode summary", logger.Error(err))
		return
	}
	if err := r.deps.Store.SaveRun(ctx, store.RunRecord{
		ID:         s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Summary:    b,
	}); err != nil {
		s.addError("save run: %v", err)
	}
}

func (r *Runner) observe(ctx context.Context, s Summary, log logger.Logger) {
	m := r.deps.Metrics
	if m == nil {
		return
	}
	m.ObserveRun(s.Duration, s.OK(), s.FinishedAt)

	pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.Push(pushCtx, r.settings.PushgatewayURL, r.settings.MetricsJob); err != nil {
		log.Warn("push metrics", logger.Error(err))
	}
}

func (r *Runner) begin(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at := s.StartedAt
	r.status.Running = true
	r.status.RunID = s.RunID
	r.status.LastRunAt = &at
}

func (r *Runner) finish(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Running = false
	r.status.LastSummary = &s
	r.status.LastError = strings.Join(s.Errors, "; ")
	if s.OK() {
		at := s.FinishedAt
		r.status.LastOkAt = &at
	}
}
