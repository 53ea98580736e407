package scrape

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/logger"
	"visahunt-engine/internal/scrape/fetch"
	"visahunt-engine/internal/scrape/types"
)

type TaskFetcher interface {
	Fetch(ctx context.Context, task domain.FetchTask, spec domain.RequestSpec) (domain.RawResponse, error)
}

// Outcome is what one task produced. Candidates are already validated and
// filtered; the counters explain what was dropped on the way.
type Outcome struct {
	Task       domain.FetchTask
	Candidates []domain.CandidatePosting
	SeenAt     time.Time
	Elapsed    time.Duration

	Failure    *domain.FetchFailure
	ExtractErr error
	Skipped    bool

	Extracted  int
	Rejected   int
	Ineligible int
}

// Collector fans tasks out over one lane per source. A lane runs at most
// perSource tasks at once and every running task also holds one of the
// global slots, so a slow source can only ever tie up its own share.
type Collector struct {
	fetcher     TaskFetcher
	adapters    map[string]types.Adapter
	filter      Filter
	parallelism int
	perSource   int
	log         logger.Logger
}

func NewCollector(f TaskFetcher, adapters []types.Adapter, filter Filter, parallelism, perSource int, log logger.Logger) *Collector {
	m := make(map[string]types.Adapter, len(adapters))
	for _, a := range adapters {
		m[a.ID()] = a
	}
	if parallelism <= 0 {
		parallelism = 10
	}
	if perSource <= 0 {
		perSource = 1
	}
	return &Collector{
		fetcher:     f,
		adapters:    m,
		filter:      filter,
		parallelism: parallelism,
		perSource:   perSource,
		log:         log.With(logger.Component("collect")),
	}
}

// Run emits exactly one Outcome per task on out and closes out when done.
// Once ctx is done no new task starts; the rest are reported as skipped.
func (c *Collector) Run(ctx context.Context, tasks iter.Seq[domain.FetchTask], out chan<- Outcome) {
	defer close(out)

	lanes := map[string][]domain.FetchTask{}
	var order []string
	for t := range tasks {
		if _, ok := lanes[t.SourceID]; !ok {
			order = append(order, t.SourceID)
		}
		lanes[t.SourceID] = append(lanes[t.SourceID], t)
	}

	global := semaphore.NewWeighted(int64(c.parallelism))
	var g errgroup.Group
	for _, src := range order {
		lane := lanes[src]
		g.Go(func() error {
			c.runLane(ctx, global, lane, out)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Collector) runLane(ctx context.Context, global *semaphore.Weighted, tasks []domain.FetchTask, out chan<- Outcome) {
	local := semaphore.NewWeighted(int64(c.perSource))
	var wg sync.WaitGroup
	defer wg.Wait()

	for i, t := range tasks {
		if ctx.Err() != nil {
			c.skip(tasks[i:], out)
			return
		}
		if err := local.Acquire(ctx, 1); err != nil {
			c.skip(tasks[i:], out)
			return
		}
		if err := global.Acquire(ctx, 1); err != nil {
			local.Release(1)
			c.skip(tasks[i:], out)
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer local.Release(1)
			defer global.Release(1)
			out <- c.process(ctx, t)
		}()
	}
}

func (c *Collector) skip(tasks []domain.FetchTask, out chan<- Outcome) {
	for _, t := range tasks {
		out <- Outcome{Task: t, Skipped: true}
	}
}

func (c *Collector) process(ctx context.Context, t domain.FetchTask) Outcome {
	o := Outcome{Task: t}
	log := c.log.With(
		logger.String("source", t.SourceID),
		logger.String("keyword", t.Keyword),
		logger.String("country", t.Country))

	a, ok := c.adapters[t.SourceID]
	if !ok {
		log.Error("no adapter for source")
		o.Skipped = true
		return o
	}

	start := time.Now()
	raw, err := c.fetcher.Fetch(ctx, t, a.BuildQuery(t.Keyword, t.Country))
	o.Elapsed = time.Since(start)
	if err != nil {
		if errors.Is(err, fetch.ErrNotStarted) {
			o.Skipped = true
			return o
		}
		var fail *domain.FetchFailure
		if !errors.As(err, &fail) {
			fail = &domain.FetchFailure{Task: t, Kind: domain.FailureConnection, Message: err.Error()}
		}
		o.Failure = fail
		log.Warn("fetch failed", logger.String("kind", fail.Kind.String()), logger.Int("status", fail.Status), logger.Error(err))
		return o
	}

	cands, err := a.ExtractCandidates(raw)
	if err != nil {
		o.ExtractErr = err
		log.Warn("extract failed", logger.Error(err))
		return o
	}

	o.SeenAt = raw.FetchedAt
	if o.SeenAt.IsZero() {
		o.SeenAt = time.Now().UTC()
	}
	o.Extracted = len(cands)
	for _, cand := range cands {
		if cand.SourceID == "" {
			cand.SourceID = t.SourceID
		}
		if cand.Country == "" {
			cand.Country = t.Country
		}
		if err := cand.Validate(); err != nil {
			o.Rejected++
			log.Debug("rejected candidate", logger.String("title", cand.Title), logger.Error(err))
			continue
		}
		if keep, why := c.filter.Evaluate(cand); !keep {
			o.Ineligible++
			log.Debug("skipped", logger.String("reason", why), logger.String("title", cand.Title), logger.String("link", cand.Link))
			continue
		}
		o.Candidates = append(o.Candidates, cand)
	}
	log.Debug("task done",
		logger.Int("extracted", o.Extracted),
		logger.Int("eligible", len(o.Candidates)),
		logger.Duration("elapsed", o.Elapsed))
	return o
}
