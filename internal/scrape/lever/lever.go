// Package lever reads the public Lever postings API for one company.
package lever

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/scrape/types"
	"visahunt-engine/internal/scrape/util"
)

type Adapter struct {
	id   string
	slug string // api.lever.co/v0/postings/<slug>
}

func New(id, slug string) *Adapter {
	return &Adapter{id: id, slug: strings.TrimSpace(slug)}
}

func (a *Adapter) ID() string { return a.id }

type leverPosting struct {
	ID         string `json:"id"`
	Text       string `json:"text"` // title
	HostedURL  string `json:"hostedUrl"`
	Categories struct {
		Location     string   `json:"location"`
		AllLocations []string `json:"allLocations"`
		Commitment   string   `json:"commitment"`
	} `json:"categories"`
	Description      string `json:"description"` // html
	DescriptionPlain string `json:"descriptionPlain"`
	AdditionalPlain  string `json:"additionalPlain"`
}

// BuildQuery ignores keyword and country: the API has no search, so
// ExtractCandidates narrows the company's postings to the task instead.
func (a *Adapter) BuildQuery(_, _ string) domain.RequestSpec {
	return domain.RequestSpec{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("https://api.lever.co/v0/postings/%s?mode=json", url.PathEscape(a.slug)),
		Header: http.Header{"Accept": {"application/json"}},
	}
}

func (a *Adapter) ExtractCandidates(raw domain.RawResponse) ([]domain.CandidatePosting, error) {
	var postings []json.RawMessage
	if err := json.Unmarshal(raw.Body, &postings); err != nil {
		return nil, &types.ExtractionError{SourceID: a.id, Err: fmt.Errorf("lever decode: %w", err)}
	}

	keyword := util.Fold(raw.Task.Keyword)
	out := make([]domain.CandidatePosting, 0, len(postings))
	for _, msg := range postings {
		var p leverPosting
		if err := json.Unmarshal(msg, &p); err != nil {
			continue
		}
		title := util.CleanText(p.Text)
		if title == "" || p.HostedURL == "" {
			continue
		}

		loc := util.NormalizeLocation(strings.Join(append([]string{p.Categories.Location}, p.Categories.AllLocations...), ", "))
		if !util.MatchesCountry(loc, raw.Task.Country) {
			continue
		}

		desc := p.DescriptionPlain
		if desc == "" {
			desc = plainText(p.Description)
		}
		snippet := util.CleanText(strings.Join([]string{desc, p.AdditionalPlain}, " "))
		if !matchesKeyword(util.Fold(title+" "+snippet), keyword) {
			continue
		}

		out = append(out, domain.CandidatePosting{
			Title:    title,
			SourceID: a.id,
			Country:  raw.Task.Country,
			Link:     p.HostedURL,
			Snippet:  snippet,
		})
	}
	return out, nil
}

// every word of the keyword must appear somewhere in the text
func matchesKeyword(folded, keyword string) bool {
	for _, w := range strings.Fields(keyword) {
		if !strings.Contains(folded, w) {
			return false
		}
	}
	return true
}

func plainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return util.CleanText(doc.Text())
}
