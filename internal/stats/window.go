package stats

import (
	"sort"
	"time"
)

// WindowStats accumulates per-target counters for one reporting window.
// It is mutated only by the aggregator goroutine.
type WindowStats struct {
	Count      int64
	OK         int64
	ClientErr  int64
	ServerErr  int64
	Failed     int64
	SumLatency int64 // ms
	MinLatency int64 // ms
	MaxLatency int64 // ms
	Start      time.Time
}

// Observe folds one outcome into the window.
func (w *WindowStats) Observe(o Outcome) {
	switch Classify(o.Status) {
	case BucketOK:
		w.OK++
	case BucketClientError:
		w.ClientErr++
	case BucketServerError:
		w.ServerErr++
	default:
		w.Failed++
	}
	if w.Count == 0 || o.LatencyMS < w.MinLatency {
		w.MinLatency = o.LatencyMS
	}
	if o.LatencyMS > w.MaxLatency {
		w.MaxLatency = o.LatencyMS
	}
	w.SumLatency += o.LatencyMS
	w.Count++
}

// AvgLatency returns the integer-truncated mean latency in ms, 0 when
// the window is empty.
func (w *WindowStats) AvgLatency() int64 {
	if w.Count == 0 {
		return 0
	}
	return w.SumLatency / w.Count
}

// Reset zeroes the counters and restarts the window clock.
func (w *WindowStats) Reset(now time.Time) {
	*w = WindowStats{Start: now}
}

// EmitFunc receives one flushed window per tracked target, in sorted
// target order.
type EmitFunc func(ts time.Time, target string, w WindowStats)

// AggregatorOptions configures an Aggregator. The zero value gets a 2s
// window, a wall clock, and no emission.
type AggregatorOptions struct {
	// Interval is the window length.
	Interval time.Duration
	// Emit is called once per tracked target at every flush.
	Emit EmitFunc
	// Collector, when set, additionally records every outcome for
	// process-lifetime statistics.
	Collector *Collector
	// Now substitutes the clock in tests.
	Now func() time.Time
}

func (o AggregatorOptions) normalize() AggregatorOptions {
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
	if o.Emit == nil {
		o.Emit = func(time.Time, string, WindowStats) {}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Aggregator is the single consumer of the event channel. It keeps one
// window per target, created lazily on first sight, and flushes all of
// them together once the interval has elapsed.
//
// Flushing is checked per consumed event rather than on a timer, so a
// window lasts at least the interval and stretches to the next event
// arrival. Under sustained load that converges on the interval; under
// near-zero load a window runs until traffic resumes. The final partial
// window is flushed when the channel closes.
type Aggregator struct {
	opts        AggregatorOptions
	windows     map[string]*WindowStats
	windowStart time.Time
}

func NewAggregator(opts AggregatorOptions) *Aggregator {
	opts = opts.normalize()
	return &Aggregator{
		opts:        opts,
		windows:     make(map[string]*WindowStats),
		windowStart: opts.Now(),
	}
}

// Run consumes outcomes until the channel closes, then flushes the
// final partial window. It must be the only goroutine draining the
// channel; the window map needs no locking because nothing else
// touches it.
func (a *Aggregator) Run(events <-chan Outcome) {
	for out := range events {
		a.Consume(out)
	}
	a.flush()
}

// Consume folds one outcome into its target's window, creating the
// window on first sight, and flushes every window once the interval
// has elapsed. Not safe for concurrent use; Run is the intended
// caller.
func (a *Aggregator) Consume(out Outcome) {
	w, ok := a.windows[out.Target]
	if !ok {
		w = &WindowStats{Start: a.opts.Now()}
		a.windows[out.Target] = w
	}
	w.Observe(out)
	if a.opts.Collector != nil {
		a.opts.Collector.Record(out)
	}
	if a.opts.Now().Sub(a.windowStart) >= a.opts.Interval {
		a.flush()
	}
}

func (a *Aggregator) flush() {
	ts := a.opts.Now()
	names := make([]string, 0, len(a.windows))
	for name := range a.windows {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w := a.windows[name]
		a.opts.Emit(ts, name, *w)
		w.Reset(ts)
	}
	a.windowStart = ts
}
