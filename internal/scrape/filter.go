package scrape

import (
	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/scrape/util"
)

var (
	DefaultSponsorshipPhrases = []string{"visa sponsorship"}
	DefaultSeniorityTerms     = []string{"fresher", "junior", "associate"}
	DefaultExcludePhrases     = []string{
		"no visa sponsorship",
		"without visa sponsorship",
		"not provide visa sponsorship",
		"unable to provide visa sponsorship",
		"cannot offer visa sponsorship",
	}
)

// Filter decides eligibility from a candidate alone. It holds no state
// beyond its phrase lists and is safe to share between goroutines.
type Filter struct {
	sponsorship []string
	seniority   []string
	exclude     []string
}

func NewFilter(sponsorship, seniority, exclude []string) Filter {
	if len(sponsorship) == 0 {
		sponsorship = DefaultSponsorshipPhrases
	}
	if len(seniority) == 0 {
		seniority = DefaultSeniorityTerms
	}
	return Filter{
		sponsorship: foldAll(sponsorship),
		seniority:   foldAll(seniority),
		exclude:     foldAll(exclude),
	}
}

func (f Filter) IsEligible(c domain.CandidatePosting) bool {
	ok, _ := f.Evaluate(c)
	return ok
}

// Evaluate returns the verdict and, for rejections, a short reason.
// Structured signals win over text when a source provides them.
func (f Filter) Evaluate(c domain.CandidatePosting) (keep bool, reason string) {
	text := util.Fold(c.Title + " " + c.Snippet)

	// blocklist wins
	if util.ContainsAny(text, f.exclude) {
		return false, "sponsorship_excluded"
	}

	switch c.Sponsorship {
	case domain.SignalNo:
		return false, "sponsorship_declined"
	case domain.SignalUnknown:
		if !util.ContainsAny(text, f.sponsorship) {
			return false, "no_sponsorship"
		}
	}

	switch c.Seniority {
	case domain.SeniorityEntry, domain.SeniorityAssociate:
	case domain.SeniorityMid, domain.SenioritySenior:
		return false, "seniority"
	default:
		if !util.ContainsAny(text, f.seniority) {
			return false, "not_entry_level"
		}
	}
	return true, ""
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = util.Fold(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
