package traffic

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/loopwork/footfall/internal/shape"
	"github.com/loopwork/footfall/internal/stats"
)

// worker generates traffic for one (target, slot) pair. It owns its
// sampler outright and shares nothing mutable with other workers
// besides the event channel and the rate limiter.
type worker struct {
	target    Target
	slot      int
	sampler   *shape.Sampler
	transport Transport
	limiter   *rate.Limiter
	logger    RequestLogger
	events    chan<- stats.Outcome
	total     *int64
}

// run loops until the context is cancelled: one shaped request, one
// think pause, and every burst period a run of back-to-back extras.
// Cancellation is observed before each request and inside each sleep,
// so exit latency stays bounded by one request timeout plus one pause.
func (w *worker) run(ctx context.Context) {
	for iteration := int64(1); w.iterate(ctx, iteration); iteration++ {
	}
}

// iterate executes one loop iteration and reports whether the worker
// should continue.
func (w *worker) iterate(ctx context.Context, iteration int64) bool {
	if ctx.Err() != nil {
		return false
	}
	w.attempt(ctx)
	if !sleepCtx(ctx, w.sampler.ThinkTime()) {
		return false
	}
	if iteration%w.sampler.BurstEvery() == 0 {
		n := w.sampler.BurstSize()
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				return false
			}
			w.attempt(ctx)
		}
	}
	return true
}

// attempt performs one shaped request and emits its outcome. Transport
// errors become failure outcomes rather than propagating; an attempt
// aborted by shutdown emits nothing.
func (w *worker) attempt(ctx context.Context) {
	if w.transport == nil {
		return
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return
	}

	sh := w.sampler.Next()
	header := http.Header{}
	header.Set("User-Agent", sh.Agent)
	header.Set("X-Request-Id", sh.RequestID)

	status, elapsed, err := w.transport.Perform(ctx, w.target.BaseURL+sh.Path, header)
	out := stats.Outcome{Target: w.target.Name, Status: status}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		out.Status = stats.StatusTransportFailure
	} else {
		out.LatencyMS = elapsed.Milliseconds()
	}

	if w.logger != nil {
		w.logger.LogRequest(w.target.Name, w.slot, sh.Path, out.Status, time.Duration(out.LatencyMS)*time.Millisecond)
	}
	atomic.AddInt64(w.total, 1)
	w.events <- out
}

// sleepCtx pauses for d, reporting false when cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
