package scrape_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/scrape"
)

func TestFilterEvaluate(t *testing.T) {
	t.Parallel()

	f := scrape.NewFilter(nil, nil, scrape.DefaultExcludePhrases)

	tests := []struct {
		name   string
		c      domain.CandidatePosting
		keep   bool
		reason string
	}{
		{
			name: "junior with sponsorship",
			c:    domain.CandidatePosting{Title: "Junior IT Support - visa sponsorship available"},
			keep: true,
		},
		{
			name:   "senior without sponsorship",
			c:      domain.CandidatePosting{Title: "Senior IT Manager, no sponsorship"},
			reason: "no_sponsorship",
		},
		{
			name:   "sponsorship but senior",
			c:      domain.CandidatePosting{Title: "Senior Engineer", Snippet: "Visa Sponsorship offered"},
			reason: "not_entry_level",
		},
		{
			name: "phrase in snippet",
			c:    domain.CandidatePosting{Title: "Fresher Network Engineer", Snippet: "We offer VISA  sponsorship."},
			keep: true,
		},
		{
			name:   "explicitly excluded",
			c:      domain.CandidatePosting{Title: "Junior Analyst", Snippet: "Note: no visa sponsorship for this role"},
			reason: "sponsorship_excluded",
		},
		{
			name: "structured entry level",
			c: domain.CandidatePosting{Title: "IT Support", Snippet: "visa sponsorship",
				Seniority: domain.SeniorityEntry},
			keep: true,
		},
		{
			name: "structured senior beats text",
			c: domain.CandidatePosting{Title: "Junior-friendly team lead", Snippet: "visa sponsorship",
				Seniority: domain.SenioritySenior},
			reason: "seniority",
		},
		{
			name: "structured sponsorship",
			c: domain.CandidatePosting{Title: "Associate Analyst",
				Sponsorship: domain.SignalYes},
			keep: true,
		},
		{
			name: "structured sponsorship declined",
			c: domain.CandidatePosting{Title: "Associate Analyst", Snippet: "visa sponsorship",
				Sponsorship: domain.SignalNo},
			reason: "sponsorship_declined",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keep, reason := f.Evaluate(tt.c)
			assert.Equal(t, tt.keep, keep)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.keep, f.IsEligible(tt.c))
		})
	}
}

func TestFilterCustomTerms(t *testing.T) {
	t.Parallel()

	f := scrape.NewFilter([]string{"relocation support"}, []string{"graduate"}, nil)
	assert.True(t, f.IsEligible(domain.CandidatePosting{Title: "Graduate SRE", Snippet: "Relocation support included"}))
	assert.False(t, f.IsEligible(domain.CandidatePosting{Title: "Junior SRE - visa sponsorship"}))
}
