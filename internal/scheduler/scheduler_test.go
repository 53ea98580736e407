package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visahunt-engine/internal/logger"
	"visahunt-engine/internal/scheduler"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, scheduler.Validate("0 */6 * * *"))
	assert.NoError(t, scheduler.Validate("@hourly"))
	assert.Error(t, scheduler.Validate("every six hours"))
}

func TestCronRunsImmediatelyAndStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- scheduler.Cron(ctx, "@every 1h", "test", true, func(context.Context) error {
			calls.Add(1)
			return nil
		}, logger.NewNop())
	}()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("cron did not stop")
	}
}

func TestCronRejectsBadSpec(t *testing.T) {
	err := scheduler.Cron(context.Background(), "nope", "test", false, func(context.Context) error { return nil }, logger.NewNop())
	assert.Error(t, err)
}
