// Package plan expands the search space into fetch tasks.
package plan

import (
	"iter"

	"visahunt-engine/internal/domain"
)

// Tasks yields every (source, keyword, country) combination lazily, source
// outermost and country innermost. Any empty input yields nothing.
func Tasks(sources, keywords, countries []string) iter.Seq[domain.FetchTask] {
	return func(yield func(domain.FetchTask) bool) {
		for _, s := range sources {
			for _, k := range keywords {
				for _, c := range countries {
					if !yield(domain.FetchTask{Keyword: k, Country: c, SourceID: s}) {
						return
					}
				}
			}
		}
	}
}

func Count(sources, keywords, countries []string) int {
	return len(sources) * len(keywords) * len(countries)
}
