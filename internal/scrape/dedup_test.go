package scrape_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/scrape"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestDeduplicatorFirstSeenWins(t *testing.T) {
	t.Parallel()

	d := scrape.NewDeduplicator()
	c := domain.CandidatePosting{Title: "Junior IT", SourceID: "a", Country: "UK", Link: "https://x.example.com/1"}

	p1, created := d.Add(c, t0)
	require.True(t, created)
	p2, created := d.Add(c, t0.Add(time.Minute))
	require.False(t, created)

	assert.Equal(t, p1, p2)
	assert.Equal(t, t0, p2.FirstSeen)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, 1, d.Dropped())
}

func TestDeduplicatorEarlierLateArrivalTakesOver(t *testing.T) {
	t.Parallel()

	d := scrape.NewDeduplicator()
	late := domain.CandidatePosting{Title: "JUNIOR it", SourceID: "b", Country: "Ireland", Link: "https://x.example.com/1"}
	early := domain.CandidatePosting{Title: "Junior IT", SourceID: "a", Country: "UK", Link: "https://x.example.com/1"}

	d.Add(late, t0.Add(time.Hour))
	p, created := d.Add(early, t0)
	assert.False(t, created)
	assert.Equal(t, t0, p.FirstSeen)
	assert.Equal(t, "a", p.SourceID)

	all := d.Postings()
	require.Len(t, all, 1)
	assert.Equal(t, "Junior IT", all[0].Title)
}

func TestDeduplicatorNormalizesAcrossSources(t *testing.T) {
	t.Parallel()

	d := scrape.NewDeduplicator()
	_, a := d.Add(domain.CandidatePosting{Title: " Junior  IT ", SourceID: "a", Link: "https://X.example.com/1?utm_source=feed"}, t0)
	_, b := d.Add(domain.CandidatePosting{Title: "junior it", SourceID: "b", Link: "https://x.example.com/1"}, t0.Add(time.Second))
	assert.True(t, a)
	assert.False(t, b)
}

func TestDeduplicatorConcurrentProducers(t *testing.T) {
	t.Parallel()

	d := scrape.NewDeduplicator()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				c := domain.CandidatePosting{Title: fmt.Sprintf("Junior %d", i), Link: fmt.Sprintf("https://x.example.com/%d", i)}
				d.Add(c, t0.Add(time.Duration(w)*time.Second))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, d.Len())
	assert.Equal(t, 350, d.Dropped())
	for _, p := range d.Postings() {
		assert.Equal(t, t0, p.FirstSeen)
	}
}

func TestDeduplicatorPostingsOrdered(t *testing.T) {
	t.Parallel()

	d := scrape.NewDeduplicator()
	d.Add(domain.CandidatePosting{Title: "C", Link: "https://x.example.com/c"}, t0.Add(2*time.Second))
	d.Add(domain.CandidatePosting{Title: "A", Link: "https://x.example.com/a"}, t0)
	d.Add(domain.CandidatePosting{Title: "B", Link: "https://x.example.com/b"}, t0.Add(time.Second))

	var titles []string
	for _, p := range d.Postings() {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"A", "B", "C"}, titles)
}
