package scrape

import (
	"fmt"
	"strings"

	"visahunt-engine/internal/config"
	"visahunt-engine/internal/scrape/anchorscan"
	"visahunt-engine/internal/scrape/greenhouse"
	"visahunt-engine/internal/scrape/lever"
	"visahunt-engine/internal/scrape/smartrecruiters"
	"visahunt-engine/internal/scrape/types"
	"visahunt-engine/internal/scrape/workday"
)

const (
	KindAnchorScan      = "anchorscan"
	KindLever           = "lever"
	KindSmartRecruiters = "smartrecruiters"
	KindGreenhouse      = "greenhouse"
	KindWorkday         = "workday"
)

// BuildAdapters turns configured sources into adapters, in config order.
func BuildAdapters(sources []config.Source) ([]types.Adapter, error) {
	out := make([]types.Adapter, 0, len(sources))
	for _, s := range sources {
		switch strings.ToLower(s.Kind) {
		case "", KindAnchorScan:
			out = append(out, anchorscan.New(s.ID, s.URL))
		case KindLever:
			out = append(out, lever.New(s.ID, s.Slug))
		case KindSmartRecruiters:
			out = append(out, smartrecruiters.New(s.ID, s.Slug))
		case KindGreenhouse:
			out = append(out, greenhouse.New(s.ID, s.Slug))
		case KindWorkday:
			a, err := workday.New(s.ID, s.URL)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		default:
			return nil, fmt.Errorf("source %q: unknown kind %q", s.ID, s.Kind)
		}
	}
	return out, nil
}

func AdapterIDs(adapters []types.Adapter) []string {
	ids := make([]string, len(adapters))
	for i, a := range adapters {
		ids[i] = a.ID()
	}
	return ids
}
