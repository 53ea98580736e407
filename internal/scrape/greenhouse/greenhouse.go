// Package greenhouse reads a company's public Greenhouse job board.
package greenhouse

import (
	"encoding/json"
	"fmt"
	"html"
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
	slug string // boards.greenhouse.io/<slug>
}

func New(id, slug string) *Adapter {
	return &Adapter{id: id, slug: strings.TrimSpace(slug)}
}

func (a *Adapter) ID() string { return a.id }

type boardResponse struct {
	Jobs []json.RawMessage `json:"jobs"`
}

type job struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	Offices []struct {
		Name     string `json:"name"`
		Location string `json:"location"`
	} `json:"offices"`
	Content string `json:"content"` // entity-escaped html
}

// BuildQuery lists the whole board; the API has no search.
func (a *Adapter) BuildQuery(_, _ string) domain.RequestSpec {
	return domain.RequestSpec{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs?content=true", url.PathEscape(a.slug)),
		Header: http.Header{"Accept": {"application/json"}},
	}
}

func (a *Adapter) ExtractCandidates(raw domain.RawResponse) ([]domain.CandidatePosting, error) {
	var br boardResponse
	if err := json.Unmarshal(raw.Body, &br); err != nil {
		return nil, &types.ExtractionError{SourceID: a.id, Err: fmt.Errorf("greenhouse decode: %w", err)}
	}

	keyword := util.Fold(raw.Task.Keyword)
	out := make([]domain.CandidatePosting, 0, len(br.Jobs))
	for _, msg := range br.Jobs {
		var j job
		if err := json.Unmarshal(msg, &j); err != nil {
			continue
		}
		title := util.CleanText(j.Title)
		if title == "" || j.AbsoluteURL == "" || looksLikeJunkTitle(title) {
			continue
		}

		locs := []string{j.Location.Name}
		for _, o := range j.Offices {
			locs = append(locs, o.Name, o.Location)
		}
		if !util.MatchesCountry(util.NormalizeLocation(strings.Join(locs, ", ")), raw.Task.Country) {
			continue
		}

		snippet := plainText(html.UnescapeString(j.Content))
		if !matchesKeyword(util.Fold(title+" "+snippet), keyword) {
			continue
		}

		out = append(out, domain.CandidatePosting{
			Title:    title,
			SourceID: a.id,
			Country:  raw.Task.Country,
			Link:     j.AbsoluteURL,
			Snippet:  snippet,
		})
	}
	return out, nil
}

func matchesKeyword(folded, keyword string) bool {
	for _, w := range strings.Fields(keyword) {
		if !strings.Contains(folded, w) {
			return false
		}
	}
	return true
}

func looksLikeJunkTitle(t string) bool {
	l := strings.ToLower(t)
	return l == "view" || l == "apply" || strings.HasPrefix(l, "apply for")
}

func plainText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return ""
	}
	return util.CleanText(doc.Text())
}
