package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"visahunt-engine/internal/logger"
)

type Task func(ctx context.Context) error

// Validate reports whether spec is a standard five-field cron expression.
func Validate(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}

// Cron runs task on spec until ctx is done. A fire that arrives while the
// previous one is still running is skipped. With immediate set the task also
// runs once right away.
func Cron(ctx context.Context, spec, name string, immediate bool, task Task, log logger.Logger) error {
	log = log.With(logger.Component("scheduler"), logger.String("task", name))

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	run := func() {
		if err := task(ctx); err != nil {
			log.Warn("task error", logger.Error(err))
		}
	}
	if _, err := c.AddFunc(spec, run); err != nil {
		return err
	}

	if immediate {
		go run()
	}
	c.Start()
	log.Info("scheduled", logger.String("spec", spec))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
