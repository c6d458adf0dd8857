package stats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records process-lifetime totals across all windows. The
// aggregator writes while the dashboard and the final report read
// snapshots concurrently, so access is mutex-guarded.
type Collector struct {
	mu        sync.Mutex
	hist      *hdrhistogram.Histogram
	buckets   [4]int64
	perTarget map[string]*TargetTotals
	responses int64
	minMS     int64
	maxMS     int64
	sumMS     int64
}

// TargetTotals is the lifetime bucket breakdown for one target.
type TargetTotals struct {
	Count     int64 `json:"requests"`
	OK        int64 `json:"ok"`
	ClientErr int64 `json:"4xx"`
	ServerErr int64 `json:"5xx"`
	Failed    int64 `json:"transport_failures"`
}

// Stats is a point-in-time snapshot of lifetime totals. Latency fields
// cover responses that produced an HTTP status; transport failures have
// no meaningful latency and are excluded from them.
type Stats struct {
	Total     int64                   `json:"total"`
	OK        int64                   `json:"ok"`
	ClientErr int64                   `json:"4xx"`
	ServerErr int64                   `json:"5xx"`
	Failed    int64                   `json:"transport_failures"`
	PerTarget map[string]TargetTotals `json:"targets,omitempty"`

	MinLatencyMS  int64 `json:"min_latency_ms"`
	MaxLatencyMS  int64 `json:"max_latency_ms"`
	MeanLatencyMS int64 `json:"mean_latency_ms"`
	P50LatencyMS  int64 `json:"p50_latency_ms"`
	P90LatencyMS  int64 `json:"p90_latency_ms"`
	P99LatencyMS  int64 `json:"p99_latency_ms"`

	Duration       time.Duration `json:"-"`
	DurationMS     int64         `json:"duration_ms"`
	RequestsPerSec float64       `json:"requests_per_sec"`
}

func NewCollector() *Collector {
	// Track latencies from 1ms up to 60s with 3 significant figures.
	return &Collector{
		hist:      hdrhistogram.New(1, 60_000, 3),
		perTarget: make(map[string]*TargetTotals),
	}
}

// Record folds one outcome into the lifetime totals.
func (c *Collector) Record(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bucket := Classify(o.Status)
	c.buckets[bucket]++

	t, ok := c.perTarget[o.Target]
	if !ok {
		t = &TargetTotals{}
		c.perTarget[o.Target] = t
	}
	t.Count++
	switch bucket {
	case BucketOK:
		t.OK++
	case BucketClientError:
		t.ClientErr++
	case BucketServerError:
		t.ServerErr++
	default:
		t.Failed++
	}

	if o.Status == StatusTransportFailure {
		return
	}
	c.responses++
	c.sumMS += o.LatencyMS
	if c.responses == 1 || o.LatencyMS < c.minMS {
		c.minMS = o.LatencyMS
	}
	if o.LatencyMS > c.maxMS {
		c.maxMS = o.LatencyMS
	}
	ms := o.LatencyMS
	if ms < c.hist.LowestTrackableValue() {
		ms = c.hist.LowestTrackableValue()
	}
	if ms > c.hist.HighestTrackableValue() {
		ms = c.hist.HighestTrackableValue()
	}
	_ = c.hist.RecordValue(ms)
}

// Stats computes the current snapshot for the given elapsed run time.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.buckets[BucketOK] + c.buckets[BucketClientError] +
		c.buckets[BucketServerError] + c.buckets[BucketFailed]
	s := Stats{
		Total:     total,
		OK:        c.buckets[BucketOK],
		ClientErr: c.buckets[BucketClientError],
		ServerErr: c.buckets[BucketServerError],
		Failed:    c.buckets[BucketFailed],
	}

	if len(c.perTarget) > 0 {
		s.PerTarget = make(map[string]TargetTotals, len(c.perTarget))
		for name, t := range c.perTarget {
			s.PerTarget[name] = *t
		}
	}

	if c.responses > 0 {
		s.MinLatencyMS = c.minMS
		s.MaxLatencyMS = c.maxMS
		s.MeanLatencyMS = c.sumMS / c.responses
	}
	if c.hist.TotalCount() > 0 {
		s.P50LatencyMS = c.hist.ValueAtQuantile(50)
		s.P90LatencyMS = c.hist.ValueAtQuantile(90)
		s.P99LatencyMS = c.hist.ValueAtQuantile(99)
	}

	s.Duration = elapsed
	s.DurationMS = elapsed.Milliseconds()
	if elapsed > 0 && total > 0 {
		s.RequestsPerSec = float64(total) / elapsed.Seconds()
	}
	return s
}
