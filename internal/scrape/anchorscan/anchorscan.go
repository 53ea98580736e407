// Package anchorscan is the generic board adapter: it scans every link on a
// search results page and keeps those whose visible text advertises both
// visa sponsorship and an entry-level role.
package anchorscan

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/scrape/types"
	"visahunt-engine/internal/scrape/util"
)

const sponsorshipPhrase = "visa sponsorship"

var seniorityTerms = []string{"fresher", "junior", "associate"}

type Adapter struct {
	id       string
	template string
}

// New builds an adapter for a board whose search URL is template with
// {keyword} and {country} placeholders.
func New(id, template string) *Adapter {
	return &Adapter{id: id, template: template}
}

func (a *Adapter) ID() string { return a.id }

func (a *Adapter) BuildQuery(keyword, country string) domain.RequestSpec {
	r := strings.NewReplacer(
		"{keyword}", strings.ReplaceAll(strings.TrimSpace(keyword), " ", "+"),
		"{country}", url.PathEscape(strings.TrimSpace(country)),
	)
	return domain.RequestSpec{
		Method: http.MethodGet,
		URL:    r.Replace(a.template),
		Header: http.Header{"Accept": {"text/html,application/xhtml+xml"}},
	}
}

func (a *Adapter) ExtractCandidates(raw domain.RawResponse) ([]domain.CandidatePosting, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Body))
	if err != nil {
		return nil, &types.ExtractionError{SourceID: a.id, Err: err}
	}

	seen := map[string]bool{}
	var out []domain.CandidatePosting
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		text := util.CleanText(s.Text())
		if text == "" {
			return
		}
		folded := util.Fold(text)
		if !strings.Contains(folded, sponsorshipPhrase) || !util.ContainsAny(folded, seniorityTerms) {
			return
		}

		href, _ := s.Attr("href")
		link := util.ResolveLink(raw.URL, href)
		if link == "" {
			return
		}
		// same anchor repeated on the page; distinct titles on one link stay apart
		key := util.Fingerprint(text, link)
		if seen[key] {
			return
		}
		seen[key] = true

		out = append(out, domain.CandidatePosting{
			Title:    text,
			SourceID: a.id,
			Country:  raw.Task.Country,
			Link:     link,
			Snippet:  text,
		})
	})
	return out, nil
}
