package poll_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/logger"
	"visahunt-engine/internal/metrics"
	"visahunt-engine/internal/outreach"
	"visahunt-engine/internal/poll"
	"visahunt-engine/internal/scrape"
	"visahunt-engine/internal/scrape/anchorscan"
	"visahunt-engine/internal/scrape/fetch"
	"visahunt-engine/internal/scrape/types"
	"visahunt-engine/internal/scrape/util"
	"visahunt-engine/internal/store"
)

var keywords = []string{"IT Infrastructure", "Systems Administrator", "Cybersecurity", "Associate IT", "Junior IT"}

// boardPage renders a result page: two postings shared by every query, one
// per keyword, plus noise the adapter or filter must drop.
func boardPage(q string) string {
	return fmt.Sprintf(`<html><body>
<a href="/jobs/shared-1">Junior IT Support - Visa Sponsorship Available</a>
<a href="https://other.example.com/jobs/shared-2?utm_source=board">Associate Engineer (visa sponsorship)</a>
<a href="/jobs/%s">Junior %s role with visa sponsorship</a>
<a href="/jobs/senior">Senior Engineer - visa sponsorship</a>
<a href="/jobs/nope">Junior developer - no visa sponsorship</a>
<a href="/about">About us</a>
</body></html>`, url.PathEscape(q), q)
}

func openStore(t *testing.T) *store.JobStore {
	t.Helper()
	s, err := store.OpenJobStore(context.Background(), store.Options{
		Driver: store.DriverSQLite,
		Target: filepath.Join(t.TempDir(), "jobs.db"),
	}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newRunner(t *testing.T, st *store.JobStore, hc fetch.Doer, sourceURL string, s poll.Settings, o poll.Outreach) *poll.Runner {
	t.Helper()
	limiter := util.NewSourceLimiter(5, 10*time.Millisecond)
	return poll.NewRunner(poll.Deps{
		Store:    st,
		Fetcher:  fetch.New(hc, limiter, fetch.Config{}, logger.NewNop(), fetch.WithSleep(noSleep)),
		Adapters: []types.Adapter{anchorscan.New("board", sourceURL+"/search?q={keyword}&l={country}")},
		Filter:   scrape.NewFilter(nil, nil, scrape.DefaultExcludePhrases),
		Outreach: o,
		Metrics:  metrics.New(),
		Log:      logger.NewNop(),
	}, s)
}

func TestRunOnceEndToEnd(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		mu.Lock()
		hits[q+"|"+r.URL.Query().Get("l")]++
		mu.Unlock()
		_, _ = io.WriteString(w, boardPage(q))
	}))
	defer srv.Close()

	st := openStore(t)
	csvPath := filepath.Join(t.TempDir(), "job_results.csv")
	r := newRunner(t, st, srv.Client(), srv.URL, poll.Settings{
		Keywords:    keywords,
		Countries:   []string{"UK", "Canada"},
		Parallelism: 10,
		PerSource:   5,
		DryRun:      true,
		CSVPath:     csvPath,
	}, nil)

	sum := r.RunOnce(context.Background())

	assert.Equal(t, 10, sum.TasksPlanned)
	assert.Equal(t, 10, sum.TasksAttempted)
	assert.Zero(t, sum.TasksFailed)
	assert.Len(t, hits, 10)

	// 2 shared + 1 per keyword
	assert.Equal(t, 7, sum.PostingsFound)
	assert.Equal(t, 7, sum.New)
	assert.Equal(t, 10*3-7, sum.Deduped)
	assert.Equal(t, 10, sum.Ineligible)
	assert.Equal(t, "dry run", sum.OutreachSkipped)
	assert.True(t, sum.OK())

	all := st.All()
	require.Len(t, all, 7)
	ids := map[string]bool{}
	for _, rec := range all {
		assert.Equal(t, domain.StatusNotApplied, rec.Application.Status)
		ids[rec.Posting.ID] = true
	}
	assert.Len(t, ids, 7)
	assert.Equal(t, util.Fingerprint("Associate Engineer (visa sponsorship)", "https://other.example.com/jobs/shared-2"),
		func() string {
			for _, rec := range all {
				if strings.HasPrefix(rec.Posting.Title, "Associate Engineer") {
					return rec.Posting.ID
				}
			}
			return ""
		}())

	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 8, strings.Count(string(b), "\n"))

	// a second run finds the same postings and adds nothing
	again := r.RunOnce(context.Background())
	assert.Zero(t, again.New)
	assert.Equal(t, 7, again.Known)
	assert.Len(t, st.All(), 7)

	runs, err := st.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	var persisted poll.Summary
	require.NoError(t, json.Unmarshal(runs[1].Summary, &persisted))
	assert.Equal(t, sum.RunID, persisted.RunID)
	assert.Equal(t, 7, persisted.New)
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func TestRunOncePartialFailure(t *testing.T) {
	hc := doerFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Query().Get("l") == "Canada" {
			return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(boardPage(r.URL.Query().Get("q")))),
			Request:    r,
		}, nil
	})

	st := openStore(t)
	r := newRunner(t, st, hc, "https://board.example.com", poll.Settings{
		Keywords:  keywords,
		Countries: []string{"UK", "Canada"},
		DryRun:    true,
	}, nil)

	sum := r.RunOnce(context.Background())
	assert.Equal(t, 10, sum.TasksAttempted)
	assert.Equal(t, 5, sum.TasksFailed)
	require.Len(t, sum.Failures, 5)
	for _, f := range sum.Failures {
		assert.Equal(t, "Canada", f.Country)
		assert.Equal(t, domain.FailureConnection.String(), f.Kind)
	}
	assert.Equal(t, 7, sum.New)
	assert.Len(t, st.All(), 7)
	assert.True(t, sum.OK())
	assert.Contains(t, sum.Render(), "Failed tasks")
}

type fakeOutreach struct {
	st  *store.JobStore
	ran int
}

func (f *fakeOutreach) Run(ctx context.Context) outreach.Result {
	f.ran++
	var res outreach.Result
	for _, rec := range f.st.RecordsFor(domain.StatusNotApplied) {
		app, err := f.st.Transition(ctx, rec.Posting.ID, domain.StatusApplied, time.Now(), "")
		if err == nil {
			res.Applied++
			res.Updated = append(res.Updated, domain.Record{Posting: rec.Posting, Application: app})
		}
	}
	return res
}

func TestRunOnceAppliesWhenNotDryRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, boardPage(r.URL.Query().Get("q")))
	}))
	defer srv.Close()

	st := openStore(t)
	o := &fakeOutreach{st: st}
	r := newRunner(t, st, srv.Client(), srv.URL, poll.Settings{
		Keywords:  keywords[:1],
		Countries: []string{"UK"},
	}, o)

	sum := r.RunOnce(context.Background())
	assert.Equal(t, 1, o.ran)
	assert.Equal(t, 3, sum.Applied)
	assert.Empty(t, sum.OutreachSkipped)
	assert.Empty(t, st.RecordsFor(domain.StatusNotApplied))
}

func TestStoppedRunKeepsPartialResultsAndSkipsOutreach(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	var mu sync.Mutex
	hc := doerFunc(func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		if calls == 1 {
			cancel()
		}
		mu.Unlock()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(boardPage(r.URL.Query().Get("q")))),
			Request:    r,
		}, nil
	})

	st := openStore(t)
	o := &fakeOutreach{st: st}
	r := newRunner(t, st, hc, "https://board.example.com", poll.Settings{
		Keywords:    keywords,
		Countries:   []string{"UK", "Canada"},
		Parallelism: 1,
		PerSource:   1,
	}, o)

	sum := r.RunOnce(ctx)
	assert.True(t, sum.Stopped)
	assert.Equal(t, "stopped", sum.OutreachSkipped)
	assert.Zero(t, o.ran)
	assert.Equal(t, 10, sum.TasksAttempted+sum.TasksSkipped)
	assert.GreaterOrEqual(t, sum.TasksAttempted, 1)
	assert.Positive(t, sum.New)
	assert.Len(t, st.All(), sum.New)
}

func TestTryRunRefusesOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	hc := doerFunc(func(r *http.Request) (*http.Response, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("<html></html>")), Request: r}, nil
	})

	st := openStore(t)
	r := newRunner(t, st, hc, "https://board.example.com", poll.Settings{
		Keywords: keywords[:1], Countries: []string{"UK"}, DryRun: true,
	}, nil)

	done := make(chan bool, 1)
	go func() {
		_, ok := r.TryRun(context.Background())
		done <- ok
	}()
	<-started
	assert.True(t, r.Status().Running)

	_, ok := r.TryRun(context.Background())
	assert.False(t, ok)

	close(release)
	assert.True(t, <-done)

	status := r.Status()
	assert.False(t, status.Running)
	require.NotNil(t, status.LastOkAt)
	require.NotNil(t, status.LastSummary)
	assert.Equal(t, 1, status.LastSummary.TasksAttempted)
}
