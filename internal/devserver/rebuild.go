package devserver

import (
	"context"
	"sync"
	"time"
)

// DebounceInterval is the quiet period after the last change before a rebuild.
const DebounceInterval = 300 * time.Millisecond

// debouncer coalesces bursts of triggers into one request on out.
type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	interval time.Duration
	out      chan struct{}
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval, out: make(chan struct{}, 1)}
}

// Trigger restarts the quiet period.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case d.out <- struct{}{}:
		default:
		}
	})
}

// Stop cancels a pending trigger.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Request queues a build immediately. The buffer holds one request, so any
// number of requests during a running build yields exactly one follow-up.
func (d *debouncer) Request() {
	select {
	case d.out <- struct{}{}:
	default:
	}
}

// runRebuilds calls build for every queued request, one at a time, until ctx
// is done.
func runRebuilds(ctx context.Context, reqs <-chan struct{}, build func(ctx context.Context)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-reqs:
			build(ctx)
		}
	}
}
