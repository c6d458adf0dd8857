// Package stats carries request outcomes from workers to their two
// consumers: the windowed summary stream and the lifetime report.
//
// # Outcomes
//
// Workers describe every finished attempt as an [Outcome] and send it
// over a shared channel. [Classify] sorts a status code into one of
// four buckets: 2xx is ok, 4xx client error, 5xx server error, and
// everything else, including the transport-failure sentinel, counts as
// a transport failure.
//
// # Windows
//
// The [Aggregator] is the channel's single consumer. It accumulates a
// [WindowStats] per target and flushes all of them together once the
// configured interval has elapsed, emitting one line per target in
// sorted order and resetting every accumulator to zero:
//
//	agg := stats.NewAggregator(stats.AggregatorOptions{
//		Interval:  2 * time.Second,
//		Collector: collector,
//		Emit:      printer.Window,
//	})
//	go agg.Run(events)
//
// Window boundaries are checked per consumed event, not on a timer, so
// idle periods stretch the current window until the next event lands.
//
// # Lifetime totals
//
// The [Collector] accumulates everything the run produced: bucket
// totals, per-target breakdowns, and an HDR histogram of response
// latencies for the final report's percentiles. [Collector.Stats]
// returns a consistent snapshot and is safe to call while the run is
// still in flight, which is how the dashboard refreshes.
package stats
