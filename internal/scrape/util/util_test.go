package util_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visahunt-engine/internal/scrape/util"
)

func TestFingerprintNormalizesTitle(t *testing.T) {
	t.Parallel()

	link := "https://jobs.example.com/view/42"
	assert.Equal(t, util.Fingerprint("foo", link), util.Fingerprint(" Foo ", link))
	assert.Equal(t, util.Fingerprint("Junior  IT\tSupport", link), util.Fingerprint("junior it support", link))
	assert.NotEqual(t, util.Fingerprint("foo", link), util.Fingerprint("bar", link))
}

func TestFingerprintCanonicalizesLink(t *testing.T) {
	t.Parallel()

	a := util.Fingerprint("Junior IT", "https://Jobs.Example.com/view/42?utm_source=x&b=2&a=1#apply")
	b := util.Fingerprint("Junior IT", "https://jobs.example.com/view/42?a=1&b=2")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestCanonicalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"HTTPS://Example.COM/a?utm_medium=x&id=3", "https://example.com/a?id=3"},
		{"https://www.linkedin.com/jobs/view?currentJobId=9&trackingId=abc", "https://www.linkedin.com/jobs/view?currentJobId=9"},
		{"https://example.com/a?z=1&a=2#frag", "https://example.com/a?a=2&z=1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, util.CanonicalizeURL(tt.in), tt.in)
	}
}

func TestResolveLink(t *testing.T) {
	t.Parallel()

	base := "https://boards.example.com/search?q=it"
	assert.Equal(t, "https://boards.example.com/jobs/1", util.ResolveLink(base, "/jobs/1"))
	assert.Equal(t, "https://other.example.org/x", util.ResolveLink(base, "https://other.example.org/x"))
	assert.Empty(t, util.ResolveLink(base, "#top"))
	assert.Empty(t, util.ResolveLink(base, "javascript:void(0)"))
	assert.Empty(t, util.ResolveLink(base, "mailto:hr@example.com"))
	assert.Empty(t, util.ResolveLink(base, ""))
}

func TestFoldAndContainsAny(t *testing.T) {
	t.Parallel()

	f := util.Fold("  Junior IT -  VISA\tSponsorship ")
	assert.Equal(t, "junior it - visa sponsorship", f)
	assert.True(t, util.ContainsAny(f, []string{"fresher", "Junior"}))
	assert.False(t, util.ContainsAny(f, []string{"senior", ""}))
}

func TestSourceLimiterWindow(t *testing.T) {
	t.Parallel()

	const (
		limit  = 3
		window = 150 * time.Millisecond
		total  = 10
	)
	sl := util.NewSourceLimiter(limit, window)

	var (
		mu     sync.Mutex
		starts []time.Time
		wg     sync.WaitGroup
	)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := sl.Acquire(context.Background(), "board")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			release()
		}()
	}
	wg.Wait()

	require.Len(t, starts, total)
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i := 0; i+limit < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i+limit].Sub(starts[i]), window,
			"more than %d starts within one window at index %d", limit, i)
	}
}

func TestSourceLimiterIsolatesSources(t *testing.T) {
	t.Parallel()

	sl := util.NewSourceLimiter(1, time.Hour)
	release, err := sl.Acquire(context.Background(), "slow")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	other, err := sl.Acquire(ctx, "fast")
	require.NoError(t, err)
	other()

	blocked, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err = sl.Acquire(blocked, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
