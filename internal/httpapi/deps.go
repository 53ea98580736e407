package httpapi

import (
	"context"
	"net/http"

	"visahunt-engine/internal/config"
	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/events"
	"visahunt-engine/internal/logger"
	"visahunt-engine/internal/poll"
	"visahunt-engine/internal/store"
)

type JobReader interface {
	All() []domain.Record
	RecordsFor(status domain.Status) []domain.Record
	Get(jobID string) (domain.Record, bool)
	Counts() map[domain.Status]int
	Runs(ctx context.Context, limit int) ([]store.RunRecord, error)
}

type RunTrigger interface {
	Status() poll.Status
	TryRun(ctx context.Context) (poll.Summary, bool)
}

type Deps struct {
	Store  JobReader
	Runner RunTrigger
	// RunCtx scopes runs triggered over HTTP; it outlives the request.
	RunCtx  context.Context
	Config  config.Config
	Hub     *events.Hub
	Metrics http.Handler
	Log     logger.Logger
}
