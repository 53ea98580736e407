package scrape

import (
	"sort"
	"sync"
	"time"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/scrape/util"
)

// Deduplicator merges candidates into unique postings by fingerprint.
// The earliest sighting owns the posting; later ones are only counted.
type Deduplicator struct {
	mu      sync.Mutex
	byID    map[string]*domain.JobPosting
	dropped int
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{byID: make(map[string]*domain.JobPosting)}
}

// Add records a sighting and reports whether it introduced a new posting.
func (d *Deduplicator) Add(c domain.CandidatePosting, seenAt time.Time) (domain.JobPosting, bool) {
	id := util.Fingerprint(c.Title, c.Link)
	seenAt = seenAt.UTC()

	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.byID[id]; ok {
		d.dropped++
		if seenAt.Before(p.FirstSeen) {
			*p = postingFrom(id, c, seenAt)
		}
		return *p, false
	}

	p := postingFrom(id, c, seenAt)
	d.byID[id] = &p
	return p, true
}

func postingFrom(id string, c domain.CandidatePosting, seenAt time.Time) domain.JobPosting {
	return domain.JobPosting{
		ID:        id,
		Title:     util.CleanText(c.Title),
		SourceID:  c.SourceID,
		Country:   c.Country,
		Link:      c.Link,
		FirstSeen: seenAt,
	}
}

// Postings returns the unique postings ordered by first sighting.
func (d *Deduplicator) Postings() []domain.JobPosting {
	d.mu.Lock()
	out := make([]domain.JobPosting, 0, len(d.byID))
	for _, p := range d.byID {
		out = append(out, *p)
	}
	d.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byID)
}

// Dropped is the number of sightings merged into an existing posting.
func (d *Deduplicator) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}
