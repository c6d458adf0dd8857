package stats_test

import (
	"sync"
	"testing"
	"time"

	"github.com/loopwork/footfall/internal/stats"
)

func TestWindowStatsObserve(t *testing.T) {
	var w stats.WindowStats

	w.Observe(stats.Outcome{Target: "east", Status: 200, LatencyMS: 40})
	w.Observe(stats.Outcome{Target: "east", Status: 204, LatencyMS: 10})
	w.Observe(stats.Outcome{Target: "east", Status: 404, LatencyMS: 25})
	w.Observe(stats.Outcome{Target: "east", Status: 503, LatencyMS: 90})
	w.Observe(stats.Outcome{Target: "east", Status: stats.StatusTransportFailure})

	if w.Count != 5 {
		t.Errorf("expected count 5, got %d", w.Count)
	}
	if got := w.OK + w.ClientErr + w.ServerErr + w.Failed; got != w.Count {
		t.Errorf("bucket sum %d does not match count %d", got, w.Count)
	}
	if w.OK != 2 || w.ClientErr != 1 || w.ServerErr != 1 || w.Failed != 1 {
		t.Errorf("unexpected buckets: ok=%d 4xx=%d 5xx=%d fail=%d", w.OK, w.ClientErr, w.ServerErr, w.Failed)
	}
	if w.MinLatency != 0 {
		t.Errorf("expected min 0 (failure latency), got %d", w.MinLatency)
	}
	if w.MaxLatency != 90 {
		t.Errorf("expected max 90, got %d", w.MaxLatency)
	}
	if got := w.AvgLatency(); got != 33 {
		t.Errorf("expected truncated avg 33, got %d", got)
	}
	if w.MinLatency > w.AvgLatency() || w.AvgLatency() > w.MaxLatency {
		t.Errorf("avg %d outside [min %d, max %d]", w.AvgLatency(), w.MinLatency, w.MaxLatency)
	}
}

func TestWindowStatsAvgTruncates(t *testing.T) {
	var w stats.WindowStats
	w.Observe(stats.Outcome{Status: 200, LatencyMS: 10})
	w.Observe(stats.Outcome{Status: 200, LatencyMS: 10})
	w.Observe(stats.Outcome{Status: 200, LatencyMS: 15})

	// 35/3 = 11.66, truncated.
	if got := w.AvgLatency(); got != 11 {
		t.Errorf("expected avg 11, got %d", got)
	}
}

func TestWindowStatsReset(t *testing.T) {
	var w stats.WindowStats
	w.Observe(stats.Outcome{Status: 200, LatencyMS: 12})
	w.Observe(stats.Outcome{Status: 500, LatencyMS: 80})

	start := time.Unix(5000, 0)
	w.Reset(start)

	if w.Count != 0 || w.OK != 0 || w.ServerErr != 0 {
		t.Errorf("counters not zeroed after reset: %+v", w)
	}
	if w.SumLatency != 0 || w.MinLatency != 0 || w.MaxLatency != 0 {
		t.Errorf("latency fields not zeroed after reset: %+v", w)
	}
	if !w.Start.Equal(start) {
		t.Errorf("expected start %v, got %v", start, w.Start)
	}
	if got := w.AvgLatency(); got != 0 {
		t.Errorf("expected avg 0 for empty window, got %d", got)
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type flushLine struct {
	ts     time.Time
	target string
	window stats.WindowStats
}

func TestAggregatorWindowRollover(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var lines []flushLine
	agg := stats.NewAggregator(stats.AggregatorOptions{
		Interval: 2 * time.Second,
		Now:      clock.Now,
		Emit: func(ts time.Time, target string, w stats.WindowStats) {
			lines = append(lines, flushLine{ts, target, w})
		},
	})

	agg.Consume(stats.Outcome{Target: "east", Status: 200, LatencyMS: 10})
	agg.Consume(stats.Outcome{Target: "east", Status: 200, LatencyMS: 20})
	if len(lines) != 0 {
		t.Fatalf("flushed before interval elapsed: %d lines", len(lines))
	}

	clock.Advance(3 * time.Second)
	agg.Consume(stats.Outcome{Target: "east", Status: 404, LatencyMS: 30})

	if len(lines) != 1 {
		t.Fatalf("expected 1 line after rollover, got %d", len(lines))
	}
	got := lines[0]
	if got.target != "east" {
		t.Errorf("expected target east, got %s", got.target)
	}
	if got.window.Count != 3 || got.window.OK != 2 || got.window.ClientErr != 1 {
		t.Errorf("unexpected window: %+v", got.window)
	}

	// The next event lands in a fresh window.
	agg.Consume(stats.Outcome{Target: "east", Status: 200, LatencyMS: 5})
	clock.Advance(2 * time.Second)
	agg.Consume(stats.Outcome{Target: "east", Status: 200, LatencyMS: 7})

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1].window.Count != 2 {
		t.Errorf("expected fresh window count 2, got %d", lines[1].window.Count)
	}
	if lines[1].window.MaxLatency != 7 {
		t.Errorf("previous window leaked into the fresh one: %+v", lines[1].window)
	}
}

func TestAggregatorEmitsAllTrackedTargetsSorted(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var lines []flushLine
	agg := stats.NewAggregator(stats.AggregatorOptions{
		Interval: time.Second,
		Now:      clock.Now,
		Emit: func(ts time.Time, target string, w stats.WindowStats) {
			lines = append(lines, flushLine{ts, target, w})
		},
	})

	agg.Consume(stats.Outcome{Target: "west", Status: 200, LatencyMS: 9})
	agg.Consume(stats.Outcome{Target: "east", Status: 200, LatencyMS: 11})
	clock.Advance(time.Second)
	agg.Consume(stats.Outcome{Target: "central", Status: 200, LatencyMS: 13})

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	order := []string{lines[0].target, lines[1].target, lines[2].target}
	want := []string{"central", "east", "west"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected sorted emission %v, got %v", want, order)
		}
	}

	// A target with no traffic in the next window still gets a line,
	// with zeroed counters.
	agg.Consume(stats.Outcome{Target: "east", Status: 200, LatencyMS: 4})
	clock.Advance(time.Second)
	agg.Consume(stats.Outcome{Target: "east", Status: 200, LatencyMS: 6})

	if len(lines) != 6 {
		t.Fatalf("expected 6 lines after second flush, got %d", len(lines))
	}
	byTarget := map[string]stats.WindowStats{}
	for _, l := range lines[3:] {
		byTarget[l.target] = l.window
	}
	if w := byTarget["west"]; w.Count != 0 || w.AvgLatency() != 0 {
		t.Errorf("idle target west: expected zero-count line, got %+v", w)
	}
	if w := byTarget["east"]; w.Count != 2 {
		t.Errorf("east: expected count 2, got %+v", w)
	}
}

func TestAggregatorRunDrainsAndFinalFlushes(t *testing.T) {
	collector := stats.NewCollector()
	var mu sync.Mutex
	totals := map[string]int64{}
	agg := stats.NewAggregator(stats.AggregatorOptions{
		Interval:  time.Hour, // only the final flush can fire
		Collector: collector,
		Emit: func(ts time.Time, target string, w stats.WindowStats) {
			mu.Lock()
			totals[target] += w.Count
			mu.Unlock()
		},
	})

	events := make(chan stats.Outcome, 64)
	done := make(chan struct{})
	go func() {
		agg.Run(events)
		close(done)
	}()

	const perTarget = 500
	var wg sync.WaitGroup
	for _, target := range []string{"east", "west"} {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			for i := 0; i < perTarget; i++ {
				events <- stats.Outcome{Target: target, Status: 200, LatencyMS: 3}
			}
		}(target)
	}
	wg.Wait()
	close(events)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("aggregator did not terminate after channel close")
	}

	if totals["east"] != perTarget || totals["west"] != perTarget {
		t.Errorf("flush totals lost events: %v", totals)
	}
	s := collector.Stats(time.Second)
	if s.Total != 2*perTarget {
		t.Errorf("collector total = %d, want %d", s.Total, 2*perTarget)
	}
	if s.PerTarget["east"].Count != perTarget {
		t.Errorf("collector east = %d, want %d", s.PerTarget["east"].Count, perTarget)
	}
}
