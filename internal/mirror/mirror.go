// Package mirror keeps a human-readable copy of the tracked jobs.
package mirror

import (
	"context"

	"visahunt-engine/internal/domain"
)

// Mirror is best effort: callers log its errors and carry on.
type Mirror interface {
	Append(ctx context.Context, p domain.JobPosting, a domain.ApplicationRecord) error
	Close() error
}

type Nop struct{}

func (Nop) Append(context.Context, domain.JobPosting, domain.ApplicationRecord) error { return nil }
func (Nop) Close() error                                                              { return nil }
