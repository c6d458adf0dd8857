// Package traffic runs the request-generating fleet.
//
// A [Fleet] spawns one worker goroutine per (target, slot) pair plus a
// single aggregator, wires them together over a buffered event
// channel, and owns the shutdown ordering: cancel workers, wait for
// in-flight requests to finish or time out, close the channel, wait
// for the aggregator to drain.
//
// # Basic Usage
//
// Configure a fleet with resolved targets and a transport, then run it
// under a cancellable context:
//
//	fleet := traffic.New(traffic.Options{
//		Targets:   targets,
//		Workers:   8,
//		Interval:  2 * time.Second,
//		Transport: client,
//		Collector: collector,
//		Emit:      printer.Window,
//	})
//	result := fleet.Run(ctx)
//
// A positive Duration caps the run; otherwise it lasts until the
// context is cancelled, typically by an interrupt signal.
//
// # Worker Behavior
//
// Each worker loops independently: draw a request shape, perform the
// GET, emit one [github.com/loopwork/footfall/internal/stats.Outcome],
// pause for a think time, and every 50th iteration fire a burst of
// back-to-back extras. A failed request becomes a failure outcome,
// never a crashed worker. Workers share no mutable state; per-worker
// event order matches issue order.
//
// # Transport Interface
//
// The [Transport] interface is the only thing a worker needs to issue
// requests:
//
//	type Transport interface {
//		Perform(ctx context.Context, url string, header http.Header) (int, time.Duration, error)
//	}
//
// Tests substitute stub transports; tracing wraps the real one.
//
// # Reproducibility
//
// Every worker owns an explicitly seeded random source derived from
// Options.Seed, so a seeded run draws identical paths, pauses, and
// burst sizes across invocations.
package traffic
