package scrape_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visahunt-engine/internal/config"
	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/logger"
	"visahunt-engine/internal/plan"
	"visahunt-engine/internal/scrape"
	"visahunt-engine/internal/scrape/types"
)

// stubAdapter turns the body into one candidate per line: "title|link".
type stubAdapter struct{ id string }

func (a stubAdapter) ID() string { return a.id }

func (a stubAdapter) BuildQuery(keyword, country string) domain.RequestSpec {
	return domain.RequestSpec{URL: fmt.Sprintf("https://%s.example.com/?q=%s&l=%s", a.id, keyword, country)}
}

func (a stubAdapter) ExtractCandidates(raw domain.RawResponse) ([]domain.CandidatePosting, error) {
	if string(raw.Body) == "garbage" {
		return nil, &types.ExtractionError{SourceID: a.id, Err: fmt.Errorf("bad body")}
	}
	var out []domain.CandidatePosting
	for _, line := range splitLines(string(raw.Body)) {
		var title, link string
		if _, err := fmt.Sscanf(line, "%s %s", &title, &link); err != nil {
			continue
		}
		out = append(out, domain.CandidatePosting{Title: title, Link: link})
	}
	return out, nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

type fakeFetcher struct {
	mu       sync.Mutex
	bodies   map[domain.FetchTask]string
	failures map[domain.FetchTask]*domain.FetchFailure
	delay    time.Duration

	inFlight, peak atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, task domain.FetchTask, spec domain.RequestSpec) (domain.RawResponse, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	if fail, ok := f.failures[task]; ok {
		return domain.RawResponse{}, fail
	}
	return domain.RawResponse{Task: task, URL: spec.URL, Status: 200, Body: []byte(f.bodies[task]), FetchedAt: time.Now().UTC()}, nil
}

func drain(t *testing.T, c *scrape.Collector, ctx context.Context, sources, keywords, countries []string) []scrape.Outcome {
	t.Helper()
	out := make(chan scrape.Outcome)
	go c.Run(ctx, plan.Tasks(sources, keywords, countries), out)
	var got []scrape.Outcome
	for o := range out {
		got = append(got, o)
	}
	return got
}

func TestCollectorFiltersAndCounts(t *testing.T) {
	t.Parallel()

	k := domain.FetchTask{Keyword: "it", Country: "UK", SourceID: "a"}
	bad := domain.FetchTask{Keyword: "it", Country: "IE", SourceID: "a"}
	broken := domain.FetchTask{Keyword: "ops", Country: "UK", SourceID: "a"}
	ff := &fakeFetcher{
		bodies: map[domain.FetchTask]string{
			k:      "Junior_IT_visa_sponsorship https://a.example.com/1\nSenior_IT https://a.example.com/2\nJunior_visa_sponsorship /relative",
			broken: "garbage",
		},
		failures: map[domain.FetchTask]*domain.FetchFailure{
			bad: {Task: bad, Kind: domain.FailureHTTP, Status: 404},
		},
	}
	adapters := []types.Adapter{stubAdapter{id: "a"}}
	c := scrape.NewCollector(ff, adapters, scrape.NewFilter([]string{"visa_sponsorship"}, nil, nil), 10, 5, logger.NewNop())

	got := drain(t, c, context.Background(), []string{"a"}, []string{"it", "ops"}, []string{"UK", "IE"})
	require.Len(t, got, 4)

	byTask := map[domain.FetchTask]scrape.Outcome{}
	for _, o := range got {
		byTask[o.Task] = o
	}

	ok := byTask[k]
	assert.Equal(t, 3, ok.Extracted)
	assert.Equal(t, 1, ok.Rejected)
	assert.Equal(t, 1, ok.Ineligible)
	require.Len(t, ok.Candidates, 1)
	assert.Equal(t, "a", ok.Candidates[0].SourceID)
	assert.Equal(t, "UK", ok.Candidates[0].Country)
	assert.False(t, ok.SeenAt.IsZero())

	require.NotNil(t, byTask[bad].Failure)
	assert.Equal(t, 404, byTask[bad].Failure.Status)

	var xerr *types.ExtractionError
	assert.ErrorAs(t, byTask[broken].ExtractErr, &xerr)
}

func TestCollectorCapsParallelism(t *testing.T) {
	t.Parallel()

	ff := &fakeFetcher{delay: 20 * time.Millisecond}
	adapters := []types.Adapter{stubAdapter{id: "a"}, stubAdapter{id: "b"}, stubAdapter{id: "c"}}
	c := scrape.NewCollector(ff, adapters, scrape.NewFilter(nil, nil, nil), 4, 3, logger.NewNop())

	kws := []string{"k1", "k2", "k3", "k4"}
	got := drain(t, c, context.Background(), []string{"a", "b", "c"}, kws, []string{"UK", "IE"})

	assert.Len(t, got, 24)
	assert.LessOrEqual(t, ff.peak.Load(), int32(4))
	assert.Greater(t, ff.peak.Load(), int32(1))
}

func TestCollectorStopsStartingTasksWhenCancelled(t *testing.T) {
	t.Parallel()

	ff := &fakeFetcher{delay: 30 * time.Millisecond}
	c := scrape.NewCollector(ff, []types.Adapter{stubAdapter{id: "a"}}, scrape.NewFilter(nil, nil, nil), 1, 1, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(45*time.Millisecond, cancel)
	got := drain(t, c, ctx, []string{"a"}, []string{"k1", "k2", "k3", "k4", "k5", "k6"}, []string{"UK"})

	require.Len(t, got, 6)
	var done, skipped int
	for _, o := range got {
		if o.Skipped {
			skipped++
		} else {
			done++
		}
	}
	assert.GreaterOrEqual(t, done, 1)
	assert.GreaterOrEqual(t, skipped, 3)
}

func TestBuildAdapters(t *testing.T) {
	t.Parallel()

	adapters, err := scrape.BuildAdapters([]config.Source{
		{ID: "indeed", URL: "https://www.indeed.com/jobs?q={keyword}&l={country}"},
		{ID: "acme", Kind: "lever", Slug: "acme"},
		{ID: "globex", Kind: "SmartRecruiters", Slug: "globex"},
		{ID: "initech", Kind: "greenhouse", Slug: "initech"},
		{ID: "umbrella", Kind: "workday", URL: "https://umbrella.wd3.myworkdayjobs.com/Careers"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"indeed", "acme", "globex", "initech", "umbrella"}, scrape.AdapterIDs(adapters))

	_, err = scrape.BuildAdapters([]config.Source{{ID: "x", Kind: "carrier-pigeon"}})
	assert.Error(t, err)

	_, err = scrape.BuildAdapters([]config.Source{{ID: "wd", Kind: "workday"}})
	assert.Error(t, err)
}
