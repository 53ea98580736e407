// Package smartrecruiters reads the public SmartRecruiters postings API,
// which exposes seniority as a structured field.
package smartrecruiters

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/scrape/types"
	"visahunt-engine/internal/scrape/util"
)

type Adapter struct {
	id string
	// Slug is the SmartRecruiters company identifier used in URLs, e.g.
	// https://jobs.smartrecruiters.com/<slug>
	slug string
}

func New(id, slug string) *Adapter {
	return &Adapter{id: id, slug: strings.TrimSpace(slug)}
}

func (a *Adapter) ID() string { return a.id }

type postingsResponse struct {
	Content    []json.RawMessage `json:"content"`
	TotalFound int               `json:"totalFound"`
}

type posting struct {
	ID       string `json:"id"`
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	Ref      string `json:"ref"`
	Location struct {
		City    string `json:"city"`
		Country string `json:"country"`
		Remote  bool   `json:"remote"`
	} `json:"location"`
	ExperienceLevel struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"experienceLevel"`
	CustomField []struct {
		FieldLabel string `json:"fieldLabel"`
		ValueLabel string `json:"valueLabel"`
	} `json:"customField"`
}

func (a *Adapter) BuildQuery(keyword, country string) domain.RequestSpec {
	q := url.Values{}
	q.Set("q", strings.TrimSpace(keyword))
	if cc := util.CountryCode(country); cc != "" {
		q.Set("country", cc)
	}
	q.Set("limit", "100")
	return domain.RequestSpec{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("https://api.smartrecruiters.com/v1/companies/%s/postings?%s", url.PathEscape(a.slug), q.Encode()),
		Header: http.Header{"Accept": {"application/json"}},
	}
}

func (a *Adapter) ExtractCandidates(raw domain.RawResponse) ([]domain.CandidatePosting, error) {
	var pr postingsResponse
	if err := json.Unmarshal(raw.Body, &pr); err != nil {
		return nil, &types.ExtractionError{SourceID: a.id, Err: fmt.Errorf("smartrecruiters decode: %w", err)}
	}

	out := make([]domain.CandidatePosting, 0, len(pr.Content))
	for _, msg := range pr.Content {
		var p posting
		if err := json.Unmarshal(msg, &p); err != nil {
			continue
		}
		title := util.CleanText(p.Name)
		id := firstNonEmpty(p.ID, p.UUID, p.Ref)
		if title == "" || id == "" {
			continue
		}

		var extra []string
		sponsorship := domain.SignalUnknown
		for _, f := range p.CustomField {
			extra = append(extra, f.FieldLabel+": "+f.ValueLabel)
			if s := sponsorshipField(f.FieldLabel, f.ValueLabel); s != domain.SignalUnknown {
				sponsorship = s
			}
		}

		out = append(out, domain.CandidatePosting{
			Title:       title,
			SourceID:    a.id,
			Country:     raw.Task.Country,
			Link:        fmt.Sprintf("https://jobs.smartrecruiters.com/%s/%s", url.PathEscape(a.slug), url.PathEscape(id)),
			Snippet:     util.CleanText(strings.Join(append([]string{p.ExperienceLevel.Label}, extra...), " ")),
			Sponsorship: sponsorship,
			Seniority:   seniority(p.ExperienceLevel.ID),
		})
	}
	return out, nil
}

func seniority(id string) domain.Seniority {
	switch strings.ToLower(id) {
	case "entry_level", "internship":
		return domain.SeniorityEntry
	case "associate":
		return domain.SeniorityAssociate
	case "mid_senior_level":
		return domain.SeniorityMid
	case "director", "executive":
		return domain.SenioritySenior
	}
	return domain.SeniorityUnknown
}

// Companies sometimes publish sponsorship as a custom yes/no field.
func sponsorshipField(label, value string) domain.Signal {
	l := util.Fold(label)
	if !strings.Contains(l, "sponsorship") && !strings.Contains(l, "visa") {
		return domain.SignalUnknown
	}
	switch util.Fold(value) {
	case "yes", "true", "available", "offered":
		return domain.SignalYes
	case "no", "false", "not available", "none":
		return domain.SignalNo
	}
	return domain.SignalUnknown
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
