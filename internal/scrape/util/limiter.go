package util

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// SourceLimiter bounds requests per source: at most n requests may be in
// flight or have completed within the trailing window. Each request holds a
// slot that is handed back one window after it completes. A pacer spreads
// starts across the window so a backlog drains instead of bursting.
type SourceLimiter struct {
	mu     sync.Mutex
	m      map[string]*sourceGate
	n      int
	window time.Duration
}

type sourceGate struct {
	slots *semaphore.Weighted
	pace  *rate.Limiter
}

func NewSourceLimiter(n int, window time.Duration) *SourceLimiter {
	if n <= 0 {
		n = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &SourceLimiter{
		m:      make(map[string]*sourceGate),
		n:      n,
		window: window,
	}
}

func (sl *SourceLimiter) gateFor(source string) *sourceGate {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if g, ok := sl.m[source]; ok {
		return g
	}
	g := &sourceGate{
		slots: semaphore.NewWeighted(int64(sl.n)),
		pace:  rate.NewLimiter(rate.Every(sl.window/time.Duration(sl.n)), 1),
	}
	sl.m[source] = g
	return g
}

// Acquire blocks until source may start another request. The returned func
// must be called once the request has completed.
func (sl *SourceLimiter) Acquire(ctx context.Context, source string) (func(), error) {
	g := sl.gateFor(source)
	if err := g.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := g.pace.Wait(ctx); err != nil {
		g.slots.Release(1)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			time.AfterFunc(sl.window, func() { g.slots.Release(1) })
		})
	}, nil
}

func (sl *SourceLimiter) Limit() int            { return sl.n }
func (sl *SourceLimiter) Window() time.Duration { return sl.window }
