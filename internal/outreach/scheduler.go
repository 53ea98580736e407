// Package outreach sends one application per eligible record, strictly one
// at a time and never closer together than the configured delay.
package outreach

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/logger"
	"visahunt-engine/internal/outreach/generate"
	"visahunt-engine/internal/outreach/sink"
)

// Store is the slice of the job store outreach needs.
type Store interface {
	RecordsFor(status domain.Status) []domain.Record
	Transition(ctx context.Context, jobID string, to domain.Status, at time.Time, reason string) (domain.ApplicationRecord, error)
	LastDispatchAt() time.Time
	SetLastDispatchAt(ctx context.Context, t time.Time) error
}

type Clock interface {
	Now() time.Time
	// Sleep returns early with ctx.Err() if ctx is done first.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Config struct {
	Delay       time.Duration
	MaxAttempts int
	MaxPerRun   int // 0 = unlimited
	Recipient   string
	Resume      string
}

// Result is what one pass produced. Updated holds the records whose status
// changed, in dispatch order.
type Result struct {
	Applied int
	Failed  int
	Pending int
	Updated []domain.Record
}

type Scheduler struct {
	store Store
	gen   generate.Generator
	sink  sink.Sink
	cfg   Config
	clock Clock
	log   logger.Logger

	// last is the start of this scheduler's latest dispatch, kept even when
	// persisting it failed.
	last time.Time
	// unrecorded holds sends the store has not yet marked Applied. They are
	// never sent again; recording is retried at the start of each Run.
	unrecorded map[string]time.Time
}

type Option func(*Scheduler)

func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }

func New(store Store, gen generate.Generator, snk sink.Sink, cfg Config, log logger.Logger, opts ...Option) *Scheduler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	s := &Scheduler{
		store: store,
		gen:   gen,
		sink:  snk,
		cfg:   cfg,
		clock: realClock{},
		log:   log.With(logger.Component("outreach")),

		unrecorded: make(map[string]time.Time),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// LoadResume reads the resume text. A missing file yields empty text.
func LoadResume(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read resume: %w", err)
	}
	return string(b), nil
}

// Queue is NotApplied plus Failed records that still have attempts left,
// oldest posting first. Records already sent are left out even if the store
// has not caught up.
func (s *Scheduler) Queue() []domain.Record {
	var q []domain.Record
	for _, r := range s.store.RecordsFor(domain.StatusNotApplied) {
		if _, sent := s.unrecorded[r.Posting.ID]; !sent {
			q = append(q, r)
		}
	}
	for _, r := range s.store.RecordsFor(domain.StatusFailed) {
		if _, sent := s.unrecorded[r.Posting.ID]; !sent && r.Application.Attempts < s.cfg.MaxAttempts {
			q = append(q, r)
		}
	}
	sort.SliceStable(q, func(i, j int) bool {
		pi, pj := q[i].Posting, q[j].Posting
		if !pi.FirstSeen.Equal(pj.FirstSeen) {
			return pi.FirstSeen.Before(pj.FirstSeen)
		}
		return pi.ID < pj.ID
	})
	return q
}

func Subject(p domain.JobPosting) string { return "Application: " + p.Title }

func Description(p domain.JobPosting) string {
	return fmt.Sprintf("%s at %s in %s", p.Title, p.SourceID, p.Country)
}

// Run works through the queue. Once ctx is done no new dispatch starts;
// a send already under way completes and is recorded.
func (s *Scheduler) Run(ctx context.Context) Result {
	var res Result
	s.recordPending(ctx)
	queue := s.Queue()

	for i, rec := range queue {
		if ctx.Err() != nil || (s.cfg.MaxPerRun > 0 && res.Applied+res.Failed >= s.cfg.MaxPerRun) {
			res.Pending = len(queue) - i
			break
		}
		updated, ok := s.dispatch(ctx, rec)
		if !ok {
			res.Pending = len(queue) - i
			break
		}
		if updated.Application.Attempts == rec.Application.Attempts {
			continue
		}
		switch updated.Application.Status {
		case domain.StatusApplied:
			res.Applied++
		case domain.StatusFailed:
			res.Failed++
		}
		res.Updated = append(res.Updated, updated)
	}

	s.log.Info("outreach done",
		logger.Int("applied", res.Applied),
		logger.Int("failed", res.Failed),
		logger.Int("pending", res.Pending))
	return res
}

// dispatch handles one record. ok is false when the stop signal arrived
// before the send started; the record is then left as it was.
func (s *Scheduler) dispatch(ctx context.Context, rec domain.Record) (domain.Record, bool) {
	p := rec.Posting
	log := s.log.With(logger.String("job_id", p.ID), logger.String("title", p.Title))

	body, genErr := s.gen.Generate(ctx, p.Title, Description(p), s.cfg.Resume)
	if genErr != nil && ctx.Err() != nil {
		return rec, false
	}

	if wait := s.lastDispatch().Add(s.cfg.Delay).Sub(s.clock.Now()); wait > 0 {
		if err := s.clock.Sleep(ctx, wait); err != nil {
			return rec, false
		}
	}
	if ctx.Err() != nil {
		return rec, false
	}

	// past this point the dispatch is committed and runs to completion
	work := context.WithoutCancel(ctx)
	started := s.clock.Now()
	s.last = started
	if err := s.store.SetLastDispatchAt(work, started); err != nil {
		log.Warn("persist dispatch time", logger.Error(err))
	}

	to, reason := domain.StatusApplied, ""
	if genErr != nil {
		to, reason = domain.StatusFailed, genErr.Error()
		log.Warn("generation failed", logger.Error(genErr))
	} else if err := s.sink.Send(work, s.cfg.Recipient, Subject(p), body); err != nil {
		to, reason = domain.StatusFailed, err.Error()
		log.Warn("send failed", logger.Error(err))
	}

	at := s.clock.Now()
	app, err := s.record(work, p.ID, to, at, reason)
	if err != nil {
		log.Error("record outcome", logger.String("status", string(to)), logger.Error(err))
		if to != domain.StatusApplied {
			return rec, true
		}
		// the message is out; it must not go out again
		s.unrecorded[p.ID] = at
		app = rec.Application
		app.Status = domain.StatusApplied
		app.Attempts++
		app.LastAttemptAt = &at
		app.LastError = ""
	}
	log.Info("dispatched", logger.String("status", string(app.Status)), logger.Int("attempts", app.Attempts))
	return domain.Record{Posting: p, Application: app}, true
}

const recordAttempts = 3

// record writes an outcome, retrying a failed write a few times.
func (s *Scheduler) record(ctx context.Context, jobID string, to domain.Status, at time.Time, reason string) (domain.ApplicationRecord, error) {
	var (
		app domain.ApplicationRecord
		err error
	)
	for range recordAttempts {
		app, err = s.store.Transition(ctx, jobID, to, at, reason)
		if err == nil {
			return app, nil
		}
		var terr *domain.TransitionError
		if errors.As(err, &terr) {
			return app, err
		}
	}
	return app, err
}

// recordPending retries marking earlier sends Applied.
func (s *Scheduler) recordPending(ctx context.Context) {
	work := context.WithoutCancel(ctx)
	for id, at := range s.unrecorded {
		_, err := s.record(work, id, domain.StatusApplied, at, "")
		var terr *domain.TransitionError
		switch {
		case err == nil:
			delete(s.unrecorded, id)
		case errors.As(err, &terr) && terr.From == domain.StatusApplied:
			delete(s.unrecorded, id)
		default:
			s.log.Warn("record earlier send", logger.String("job_id", id), logger.Error(err))
		}
	}
}

// lastDispatch is the later of the persisted time and this scheduler's own.
func (s *Scheduler) lastDispatch() time.Time {
	stored := s.store.LastDispatchAt()
	if s.last.After(stored) {
		return s.last
	}
	return stored
}
