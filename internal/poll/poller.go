package poll

import (
	"context"
	"errors"

	"visahunt-engine/internal/scheduler"
)

var ErrRunInProgress = errors.New("a run is already in progress")

// StartPoller runs the pipeline on the cron spec, once right away and then
// on every fire, until ctx is done. Fires that land on a running batch are
// dropped.
func StartPoller(ctx context.Context, spec string, r *Runner) error {
	return scheduler.Cron(ctx, spec, "pipeline", true, func(ctx context.Context) error {
		if _, ok := r.TryRun(ctx); !ok {
			return ErrRunInProgress
		}
		return nil
	}, r.log)
}
