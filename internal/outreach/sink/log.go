package sink

import (
	"context"

	"visahunt-engine/internal/logger"
)

// Log records the application instead of delivering it.
type Log struct {
	log logger.Logger
}

func NewLog(log logger.Logger) *Log {
	return &Log{log: log.With(logger.Component("sink"))}
}

func (l *Log) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return sendErr("%v", err)
	}
	l.log.Info("application",
		logger.String("to", recipient),
		logger.String("subject", subject),
		logger.Int("body_bytes", len(body)))
	return nil
}
