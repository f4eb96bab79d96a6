package gameserver

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTickRate is the scheduler frequency in ticks per second.
const DefaultTickRate = 30

// TickManager fires registered callbacks at a fixed rate.
// Callbacks run sequentially on the scheduler goroutine, in name order.
//
// Invariant: each callback is invoked at most once per tick interval.
type TickManager struct {
	interval time.Duration
	logger   *zap.Logger
	mu       sync.Mutex
	ticks    map[string]func()
}

// NewTickManager returns a manager that fires rate times per second.
//
// Precondition: rate must be > 0.
func NewTickManager(rate int, logger *zap.Logger) *TickManager {
	if rate <= 0 {
		panic("gameserver.NewTickManager: rate must be > 0")
	}
	return &TickManager{
		interval: time.Second / time.Duration(rate),
		logger:   logger,
		ticks:    make(map[string]func()),
	}
}

// Interval returns the time between ticks.
func (t *TickManager) Interval() time.Duration {
	return t.interval
}

// RegisterTick registers a callback under name. Replaces any existing callback.
func (t *TickManager) RegisterTick(name string, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ticks[name] = fn
}

// Unregister removes the callback registered under name.
func (t *TickManager) Unregister(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.ticks, name)
}

// Start runs the tick loop in a new goroutine until ctx is cancelled.
func (t *TickManager) Start(ctx context.Context) {
	go t.Run(ctx)
}

// Run runs the tick loop on the calling goroutine until ctx is cancelled.
//
// Postcondition: all registered callbacks are invoked once per interval.
// A tick that overruns the interval is logged at warn; missed ticks are
// dropped, not queued.
func (t *TickManager) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			for _, fn := range t.snapshot() {
				fn()
			}
			if elapsed := time.Since(start); elapsed > t.interval {
				t.logger.Warn("tick overran interval",
					zap.Duration("elapsed", elapsed),
					zap.Duration("interval", t.interval),
				)
			}
		}
	}
}

func (t *TickManager) snapshot() []func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.ticks))
	for name := range t.ticks {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]func(), 0, len(names))
	for _, name := range names {
		out = append(out, t.ticks[name])
	}
	return out
}
