package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/logger"
)

type Options struct {
	Driver   string // sqlite | pgx
	Target   string // file path for sqlite, DSN for pgx
	LockPath string // exclusive run lock; empty disables it
}

// JobStore is the single owner of postings and application records. The
// in-memory maps are authoritative for reads; every mutation is written
// through to SQL first and only applied in memory once that succeeded.
type JobStore struct {
	db   *DB
	lock *flock.Flock
	log  logger.Logger

	mu           sync.RWMutex
	postings     map[string]domain.JobPosting
	apps         map[string]domain.ApplicationRecord
	lastDispatch time.Time
}

func OpenJobStore(ctx context.Context, opts Options, log logger.Logger) (*JobStore, error) {
	s := &JobStore{
		log:      log.With(logger.Component("store")),
		postings: map[string]domain.JobPosting{},
		apps:     map[string]domain.ApplicationRecord{},
	}

	if opts.LockPath != "" {
		s.lock = flock.New(opts.LockPath)
		ok, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", opts.LockPath, err)
		}
		if !ok {
			return nil, ErrLocked
		}
	}

	db, err := Open(opts.Driver, opts.Target)
	if err != nil {
		s.unlock()
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.db = db

	if err := Migrate(ctx, db); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	if err := s.load(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("load store: %w", err)
	}

	s.log.Info("store opened",
		logger.String("driver", opts.Driver),
		logger.Int("postings", len(s.postings)))
	return s, nil
}

func (s *JobStore) Close() error {
	err := s.db.Close()
	s.unlock()
	return err
}

func (s *JobStore) unlock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
}

type postingRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	SourceID  string `db:"source_id"`
	Country   string `db:"country"`
	Link      string `db:"link"`
	FirstSeen string `db:"first_seen"`
}

type appRow struct {
	JobID         string         `db:"job_id"`
	Status        string         `db:"status"`
	Attempts      int            `db:"attempts"`
	LastAttemptAt sql.NullString `db:"last_attempt_at"`
	LastError     string         `db:"last_error"`
}

func (s *JobStore) load(ctx context.Context) error {
	var prow []postingRow
	if err := s.db.X.SelectContext(ctx, &prow, `SELECT id, title, source_id, country, link, first_seen FROM postings`); err != nil {
		return err
	}
	for _, r := range prow {
		fs, err := parseTime(r.FirstSeen)
		if err != nil {
			return fmt.Errorf("posting %s: %w", r.ID, err)
		}
		s.postings[r.ID] = domain.JobPosting{ID: r.ID, Title: r.Title, SourceID: r.SourceID, Country: r.Country, Link: r.Link, FirstSeen: fs}
	}

	var arow []appRow
	if err := s.db.X.SelectContext(ctx, &arow, `SELECT job_id, status, attempts, last_attempt_at, last_error FROM applications`); err != nil {
		return err
	}
	for _, r := range arow {
		st, err := domain.ParseStatus(r.Status)
		if err != nil {
			return fmt.Errorf("application %s: %w", r.JobID, err)
		}
		rec := domain.ApplicationRecord{JobID: r.JobID, Status: st, Attempts: r.Attempts, LastError: r.LastError}
		if r.LastAttemptAt.Valid && r.LastAttemptAt.String != "" {
			t, err := parseTime(r.LastAttemptAt.String)
			if err != nil {
				return fmt.Errorf("application %s: %w", r.JobID, err)
			}
			rec.LastAttemptAt = &t
		}
		s.apps[r.JobID] = rec
	}

	var last string
	err := s.db.X.GetContext(ctx, &last, s.db.X.Rebind(`SELECT value FROM meta WHERE key = ?`), metaLastDispatch)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		if s.lastDispatch, err = parseTime(last); err != nil {
			return fmt.Errorf("last dispatch: %w", err)
		}
	}
	return nil
}

// Upsert stores p with a NotApplied record unless its fingerprint is
// already known, in which case nothing changes and created is false.
func (s *JobStore) Upsert(ctx context.Context, p domain.JobPosting) (created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.postings[p.ID]; ok {
		return false, nil
	}
	p.FirstSeen = p.FirstSeen.UTC()
	rec := domain.ApplicationRecord{JobID: p.ID, Status: domain.StatusNotApplied}

	tx, err := s.db.X.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
INSERT INTO postings(id, title, source_id, country, link, first_seen)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`),
		p.ID, p.Title, p.SourceID, p.Country, p.Link, formatTime(p.FirstSeen)); err != nil {
		return false, fmt.Errorf("insert posting: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
INSERT INTO applications(job_id, status, attempts, last_error)
VALUES (?, ?, 0, '')
ON CONFLICT(job_id) DO NOTHING`),
		p.ID, string(rec.Status)); err != nil {
		return false, fmt.Errorf("insert application: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	s.postings[p.ID] = p
	s.apps[p.ID] = rec
	return true, nil
}

// Transition moves a record to status to. Illegal moves fail with an error
// matching domain.ErrInvalidTransition and leave the record untouched.
func (s *JobStore) Transition(ctx context.Context, jobID string, to domain.Status, at time.Time, reason string) (domain.ApplicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.apps[jobID]
	if !ok {
		return domain.ApplicationRecord{}, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if !domain.CanTransition(cur.Status, to) {
		return cur, &domain.TransitionError{JobID: jobID, From: cur.Status, To: to}
	}

	at = at.UTC()
	next := cur
	next.Status = to
	next.Attempts++
	next.LastAttemptAt = &at
	next.LastError = ""
	if to == domain.StatusFailed {
		next.LastError = reason
	}

	if _, err := s.db.X.ExecContext(ctx, s.db.X.Rebind(`
UPDATE applications
SET status = ?, attempts = ?, last_attempt_at = ?, last_error = ?
WHERE job_id = ?`),
		string(next.Status), next.Attempts, formatTime(at), next.LastError, jobID); err != nil {
		return cur, fmt.Errorf("update application: %w", err)
	}

	s.apps[jobID] = next
	return next, nil
}

func (s *JobStore) Get(jobID string) (domain.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.postings[jobID]
	if !ok {
		return domain.Record{}, false
	}
	return domain.Record{Posting: p, Application: s.apps[jobID]}, true
}

// RecordsFor returns the records currently in status, oldest posting first.
func (s *JobStore) RecordsFor(status domain.Status) []domain.Record {
	return s.collect(func(r domain.ApplicationRecord) bool { return r.Status == status })
}

func (s *JobStore) All() []domain.Record {
	return s.collect(func(domain.ApplicationRecord) bool { return true })
}

func (s *JobStore) collect(keep func(domain.ApplicationRecord) bool) []domain.Record {
	s.mu.RLock()
	out := make([]domain.Record, 0, len(s.apps))
	for id, a := range s.apps {
		if keep(a) {
			out = append(out, domain.Record{Posting: s.postings[id], Application: a})
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].Posting, out[j].Posting
		if !pi.FirstSeen.Equal(pj.FirstSeen) {
			return pi.FirstSeen.Before(pj.FirstSeen)
		}
		return pi.ID < pj.ID
	})
	return out
}

func (s *JobStore) Counts() map[domain.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[domain.Status]int{}
	for _, a := range s.apps {
		out[a.Status]++
	}
	return out
}

const metaLastDispatch = "last_dispatch_at"

func (s *JobStore) LastDispatchAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDispatch
}

func (s *JobStore) SetLastDispatchAt(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t = t.UTC()
	if _, err := s.db.X.ExecContext(ctx, s.db.X.Rebind(`
INSERT INTO meta(key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`),
		metaLastDispatch, formatTime(t)); err != nil {
		return fmt.Errorf("save last dispatch: %w", err)
	}
	s.lastDispatch = t
	return nil
}

// fixed width so stored timestamps also sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }
