package types

import (
	"fmt"

	"visahunt-engine/internal/domain"
)

// Adapter knows how to query one source and read candidates out of its
// responses. BuildQuery must be pure and total.
type Adapter interface {
	ID() string
	BuildQuery(keyword, country string) domain.RequestSpec
	ExtractCandidates(raw domain.RawResponse) ([]domain.CandidatePosting, error)
}

// ExtractionError means a response body could not be read as a whole.
// Individual bad fragments are skipped by adapters and never surface here.
type ExtractionError struct {
	SourceID string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.SourceID, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
