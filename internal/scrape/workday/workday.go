// Package workday queries a Workday career site through its CXS search
// endpoint, the JSON API the hosted board itself calls.
package workday

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/scrape/types"
	"visahunt-engine/internal/scrape/util"
)

const pageSize = 20

type Adapter struct {
	id string
	b  board
}

// board is the parsed form of a public board URL such as
// https://acme.wd5.myworkdayjobs.com/en-US/External.
type board struct {
	scheme string
	host   string
	tenant string
	site   string
	locale string
}

// New parses boardURL up front so a bad source fails at startup, not on
// every task.
func New(id, boardURL string) (*Adapter, error) {
	b, err := parseBoardURL(boardURL)
	if err != nil {
		return nil, fmt.Errorf("workday %s: %w", id, err)
	}
	return &Adapter{id: id, b: b}, nil
}

func (a *Adapter) ID() string { return a.id }

type searchRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

type searchResponse struct {
	Total       int               `json:"total"`
	JobPostings []json.RawMessage `json:"jobPostings"`
}

type posting struct {
	Title         string   `json:"title"`
	ExternalPath  string   `json:"externalPath"`
	ExternalURL   string   `json:"externalUrl"`
	LocationsText string   `json:"locationsText"`
	Location      string   `json:"location"`
	BulletFields  []string `json:"bulletFields"`
}

// BuildQuery searches the board for "<keyword> <country>"; Workday ranks
// by text relevance, so ExtractCandidates still checks the location.
func (a *Adapter) BuildQuery(keyword, country string) domain.RequestSpec {
	body, _ := json.Marshal(searchRequest{
		AppliedFacets: map[string]any{},
		Limit:         pageSize,
		SearchText:    strings.TrimSpace(keyword + " " + country),
	})
	origin := a.b.scheme + "://" + a.b.host
	lang := a.b.locale
	if lang == "" {
		lang = "en-US"
	}
	return domain.RequestSpec{
		Method: http.MethodPost,
		URL:    a.b.jobsEndpoint(),
		Header: http.Header{
			"Accept":          {"application/json"},
			"Content-Type":    {"application/json"},
			"Accept-Language": {lang},
			"Origin":          {origin},
			"Referer":         {a.b.boardURL()},
		},
		Body: body,
	}
}

func (a *Adapter) ExtractCandidates(raw domain.RawResponse) ([]domain.CandidatePosting, error) {
	var sr searchResponse
	if err := json.Unmarshal(raw.Body, &sr); err != nil {
		return nil, &types.ExtractionError{SourceID: a.id, Err: fmt.Errorf("workday decode: %w", err)}
	}

	out := make([]domain.CandidatePosting, 0, len(sr.JobPostings))
	for _, msg := range sr.JobPostings {
		var p posting
		if err := json.Unmarshal(msg, &p); err != nil {
			continue
		}
		title := util.CleanText(p.Title)
		link := a.b.absoluteJobURL(p)
		if title == "" || link == "" {
			continue
		}
		loc := util.NormalizeLocation(firstNonEmpty(p.LocationsText, p.Location))
		// "2 Locations" and the like carry no country; keep those and let
		// the filter decide on text.
		if loc != "" && !multiLocation(loc) && !util.MatchesCountry(loc, raw.Task.Country) {
			continue
		}

		out = append(out, domain.CandidatePosting{
			Title:    title,
			SourceID: a.id,
			Country:  raw.Task.Country,
			Link:     link,
			Snippet:  util.CleanText(strings.Join(append([]string{loc}, p.BulletFields...), " ")),
		})
	}
	return out, nil
}

func multiLocation(loc string) bool {
	return strings.HasSuffix(util.Fold(loc), " locations")
}

func parseBoardURL(raw string) (board, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return board{}, errors.New("empty board url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return board{}, err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Host == "" {
		return board{}, fmt.Errorf("missing host in %q", raw)
	}

	parts := strings.Split(u.Host, ".")
	if len(parts) < 3 {
		return board{}, fmt.Errorf("unexpected host %q", u.Host)
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return board{}, fmt.Errorf("no site in path %q", u.Path)
	}
	locale := ""
	if len(segs) >= 2 && looksLikeLocale(segs[0]) {
		locale = strings.ToLower(segs[0][:2]) + "-" + strings.ToUpper(segs[0][3:])
		segs = segs[1:]
	}

	return board{
		scheme: u.Scheme,
		host:   u.Host,
		tenant: parts[0],
		site:   segs[len(segs)-1],
		locale: locale,
	}, nil
}

// en-US, en-us
func looksLikeLocale(s string) bool {
	if len(s) != 5 || s[2] != '-' {
		return false
	}
	for _, c := range s[:2] + s[3:] {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

func (b board) jobsEndpoint() string {
	base := fmt.Sprintf("%s://%s/wday/cxs/%s/%s/jobs", b.scheme, b.host, b.tenant, b.site)
	if b.locale == "" {
		return base
	}
	return base + "?locale=" + url.QueryEscape(b.locale)
}

func (b board) boardURL() string {
	if b.locale == "" {
		return fmt.Sprintf("%s://%s/%s", b.scheme, b.host, b.site)
	}
	return fmt.Sprintf("%s://%s/%s/%s", b.scheme, b.host, b.locale, b.site)
}

func (b board) absoluteJobURL(p posting) string {
	if u := strings.TrimSpace(p.ExternalURL); u != "" {
		return u
	}
	path := strings.TrimSpace(p.ExternalPath)
	switch {
	case path == "":
		return ""
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	case !strings.HasPrefix(path, "/"):
		path = "/" + path
	}
	return b.boardURL() + path
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
