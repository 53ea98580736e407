package outreach_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/logger"
	"visahunt-engine/internal/outreach"
	"visahunt-engine/internal/outreach/generate"
	"visahunt-engine/internal/outreach/sink"
	"visahunt-engine/internal/store"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

type fakeGen struct{ failFor map[string]bool }

func (g fakeGen) Generate(_ context.Context, title, description, _ string) (string, error) {
	if g.failFor[title] {
		return "", fmt.Errorf("%w: model unavailable", generate.ErrGeneration)
	}
	return "letter for " + description, nil
}

type sent struct {
	at      time.Time
	subject string
}

type fakeSink struct {
	clock   *fakeClock
	sent    []sent
	failFor map[string]bool
	onSend  func()
}

func (s *fakeSink) Send(_ context.Context, _, subject, _ string) error {
	if s.onSend != nil {
		s.onSend()
	}
	if s.failFor[subject] {
		return fmt.Errorf("%w: mailbox full", sink.ErrSend)
	}
	s.sent = append(s.sent, sent{at: s.clock.Now(), subject: subject})
	s.clock.now = s.clock.now.Add(500 * time.Millisecond)
	return nil
}

func seed(t *testing.T, n int) *store.JobStore {
	t.Helper()
	dir := t.TempDir()
	s, err := store.OpenJobStore(context.Background(), store.Options{
		Driver: store.DriverSQLite,
		Target: filepath.Join(dir, "jobs.db"),
	}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for i := 0; i < n; i++ {
		_, err := s.Upsert(context.Background(), domain.JobPosting{
			ID:        fmt.Sprintf("job-%d", i),
			Title:     fmt.Sprintf("Junior IT %d", i),
			SourceID:  "indeed",
			Country:   "UK",
			Link:      fmt.Sprintf("https://jobs.example.com/%d", i),
			FirstSeen: t0.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	return s
}

func cfg() outreach.Config {
	return outreach.Config{Delay: 10 * time.Second, MaxAttempts: 3, Recipient: "recruiter@example.com"}
}

func TestDispatchesAreSpacedByDelay(t *testing.T) {
	st := seed(t, 3)
	clock := &fakeClock{now: t0.Add(time.Hour)}
	snk := &fakeSink{clock: clock}

	res := outreach.New(st, fakeGen{}, snk, cfg(), logger.NewNop(), outreach.WithClock(clock)).Run(context.Background())

	assert.Equal(t, 3, res.Applied)
	require.Len(t, snk.sent, 3)
	assert.Equal(t, "Application: Junior IT 0", snk.sent[0].subject)
	for i := 1; i < len(snk.sent); i++ {
		assert.GreaterOrEqual(t, snk.sent[i].at.Sub(snk.sent[i-1].at), 10*time.Second)
	}
	assert.Empty(t, st.RecordsFor(domain.StatusNotApplied))
	assert.Equal(t, []time.Duration{9500 * time.Millisecond, 9500 * time.Millisecond}, clock.sleeps)
}

func TestDelayCarriesAcrossRuns(t *testing.T) {
	st := seed(t, 1)
	clock := &fakeClock{now: t0.Add(time.Hour)}
	require.NoError(t, st.SetLastDispatchAt(context.Background(), clock.now.Add(-3*time.Second)))

	snk := &fakeSink{clock: clock}
	outreach.New(st, fakeGen{}, snk, cfg(), logger.NewNop(), outreach.WithClock(clock)).Run(context.Background())

	assert.Equal(t, []time.Duration{7 * time.Second}, clock.sleeps)
	assert.Equal(t, clock.now.Add(-500*time.Millisecond), st.LastDispatchAt())
}

func TestFailuresDegradeOnlyTheirRecord(t *testing.T) {
	st := seed(t, 3)
	clock := &fakeClock{now: t0.Add(time.Hour)}
	snk := &fakeSink{clock: clock, failFor: map[string]bool{"Application: Junior IT 1": true}}
	gen := fakeGen{failFor: map[string]bool{"Junior IT 2": true}}

	res := outreach.New(st, gen, snk, cfg(), logger.NewNop(), outreach.WithClock(clock)).Run(context.Background())
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Updated, 3)

	r1, _ := st.Get("job-1")
	assert.Equal(t, domain.StatusFailed, r1.Application.Status)
	assert.Equal(t, 1, r1.Application.Attempts)
	assert.Contains(t, r1.Application.LastError, "mailbox full")

	r2, _ := st.Get("job-2")
	assert.Equal(t, domain.StatusFailed, r2.Application.Status)
	assert.Contains(t, r2.Application.LastError, "model unavailable")
}

func TestFailedRecordsRetryUntilMaxAttempts(t *testing.T) {
	st := seed(t, 2)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := st.Transition(ctx, "job-0", domain.StatusFailed, t0, "boom")
		require.NoError(t, err)
	}
	_, err := st.Transition(ctx, "job-1", domain.StatusFailed, t0, "boom")
	require.NoError(t, err)

	clock := &fakeClock{now: t0.Add(time.Hour)}
	s := outreach.New(st, fakeGen{}, &fakeSink{clock: clock}, cfg(), logger.NewNop(), outreach.WithClock(clock))

	q := s.Queue()
	require.Len(t, q, 1)
	assert.Equal(t, "job-1", q[0].Posting.ID)

	res := s.Run(ctx)
	assert.Equal(t, 1, res.Applied)
	r, _ := st.Get("job-1")
	assert.Equal(t, domain.StatusApplied, r.Application.Status)
	assert.Equal(t, 2, r.Application.Attempts)
}

func TestStopLetsInFlightSendFinish(t *testing.T) {
	st := seed(t, 3)
	clock := &fakeClock{now: t0.Add(time.Hour)}
	ctx, cancel := context.WithCancel(context.Background())
	snk := &fakeSink{clock: clock, onSend: cancel}

	res := outreach.New(st, fakeGen{}, snk, cfg(), logger.NewNop(), outreach.WithClock(clock)).Run(ctx)

	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 2, res.Pending)
	assert.Len(t, st.RecordsFor(domain.StatusNotApplied), 2)
}

func TestMaxPerRun(t *testing.T) {
	st := seed(t, 4)
	clock := &fakeClock{now: t0.Add(time.Hour)}
	c := cfg()
	c.MaxPerRun = 2

	res := outreach.New(st, fakeGen{}, &fakeSink{clock: clock}, c, logger.NewNop(), outreach.WithClock(clock)).Run(context.Background())
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 2, res.Pending)
}

func TestLoadResume(t *testing.T) {
	text, err := outreach.LoadResume(filepath.Join(t.TempDir(), "missing.txt"))
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = outreach.LoadResume(t.TempDir())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}

// flakyStore fails the chosen writes while delegating everything else.
type flakyStore struct {
	*store.JobStore
	failDispatchTime bool
	failTransition   bool
}

func (f *flakyStore) SetLastDispatchAt(ctx context.Context, t time.Time) error {
	if f.failDispatchTime {
		return errors.New("database is locked")
	}
	return f.JobStore.SetLastDispatchAt(ctx, t)
}

func (f *flakyStore) Transition(ctx context.Context, jobID string, to domain.Status, at time.Time, reason string) (domain.ApplicationRecord, error) {
	if f.failTransition {
		return domain.ApplicationRecord{}, errors.New("disk I/O error")
	}
	return f.JobStore.Transition(ctx, jobID, to, at, reason)
}

func TestDelayHoldsWhenDispatchTimeIsNotSaved(t *testing.T) {
	st := &flakyStore{JobStore: seed(t, 3), failDispatchTime: true}
	clock := &fakeClock{now: t0.Add(time.Hour)}
	snk := &fakeSink{clock: clock}

	res := outreach.New(st, fakeGen{}, snk, cfg(), logger.NewNop(), outreach.WithClock(clock)).Run(context.Background())

	assert.Equal(t, 3, res.Applied)
	require.Len(t, snk.sent, 3)
	for i := 1; i < len(snk.sent); i++ {
		assert.GreaterOrEqual(t, snk.sent[i].at.Sub(snk.sent[i-1].at), 10*time.Second)
	}
	assert.True(t, st.LastDispatchAt().IsZero())
}

func TestSentRecordIsNotResentWhenOutcomeWriteFails(t *testing.T) {
	st := &flakyStore{JobStore: seed(t, 1), failTransition: true}
	clock := &fakeClock{now: t0.Add(time.Hour)}
	snk := &fakeSink{clock: clock}
	s := outreach.New(st, fakeGen{}, snk, cfg(), logger.NewNop(), outreach.WithClock(clock))

	res := s.Run(context.Background())
	assert.Equal(t, 1, res.Applied)
	require.Len(t, res.Updated, 1)
	assert.Equal(t, domain.StatusApplied, res.Updated[0].Application.Status)
	assert.Empty(t, s.Queue())

	r, _ := st.Get("job-0")
	assert.Equal(t, domain.StatusNotApplied, r.Application.Status)

	st.failTransition = false
	res = s.Run(context.Background())
	assert.Zero(t, res.Applied)
	assert.Len(t, snk.sent, 1)

	r, _ = st.Get("job-0")
	assert.Equal(t, domain.StatusApplied, r.Application.Status)
	assert.Equal(t, 1, r.Application.Attempts)
}
