package traffic

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loopwork/footfall/internal/shape"
	"github.com/loopwork/footfall/internal/stats"
)

// Result captures one run.
type Result struct {
	Requests int64
	Duration time.Duration
}

// Fleet orchestrates the whole generation lifecycle: workers per
// target, the aggregator, and the drain/close ordering at shutdown.
type Fleet struct {
	opt Options
}

func New(opt Options) *Fleet {
	opt.normalize()
	return &Fleet{opt: opt}
}

// Run generates traffic until the context is cancelled or the
// configured duration elapses, then shuts down: cancel workers, wait
// for in-flight requests, close the event channel, and wait for the
// aggregator to drain. The channel is closed exactly once, strictly
// after every producer has exited.
func (f *Fleet) Run(ctx context.Context) Result {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if f.opt.Duration > 0 {
		deadlineCtx, deadlineCancel := context.WithTimeout(ctx, f.opt.Duration)
		ctx = deadlineCtx
		defer deadlineCancel()
	}

	events := make(chan stats.Outcome, f.opt.EventBuffer)
	agg := stats.NewAggregator(stats.AggregatorOptions{
		Interval:  f.opt.Interval,
		Collector: f.opt.Collector,
		Emit:      f.opt.Emit,
	})
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		agg.Run(events)
	}()

	limiter := f.opt.LimiterFactory(f.opt.MaxRPS)

	var total int64
	var wg sync.WaitGroup
	workerIndex := int64(0)
	for _, target := range f.opt.Targets {
		for slot := 0; slot < target.Workers; slot++ {
			w := &worker{
				target:    target,
				slot:      slot,
				sampler:   shape.NewSampler(f.opt.Seed+workerIndex, f.opt.Profile),
				transport: f.opt.Transport,
				limiter:   limiter,
				logger:    f.opt.Logger,
				events:    events,
				total:     &total,
			}
			workerIndex++
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.run(ctx)
			}()
		}
	}

	wg.Wait()
	close(events)
	<-aggDone

	return Result{
		Requests: atomic.LoadInt64(&total),
		Duration: time.Since(start),
	}
}
