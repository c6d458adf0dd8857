package traffic

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/loopwork/footfall/internal/shape"
	"github.com/loopwork/footfall/internal/stats"
)

// Target is one traffic destination: a name, its resolved base URL,
// and the number of workers bound to it. Immutable once the fleet
// starts.
type Target struct {
	Name    string
	BaseURL string
	Workers int
}

// Transport abstracts performing a single GET. Implementations report
// the status code and elapsed time, or a non-nil error when no HTTP
// status was obtained.
type Transport interface {
	Perform(ctx context.Context, url string, header http.Header) (status int, elapsed time.Duration, err error)
}

// RequestLogger receives one line per finished attempt when verbose
// logging is enabled. Implementations must be safe for concurrent use.
type RequestLogger interface {
	LogRequest(target string, slot int, path string, status int, latency time.Duration)
}

// Options configure a Fleet.
type Options struct {
	Targets  []Target
	Workers  int           // default workers per target when Target.Workers is 0
	Interval time.Duration // stats window length
	Duration time.Duration // overall run cap (0 means run until cancelled)
	MaxRPS   int           // shared requests/sec ceiling (0 means unlimited)
	Seed     int64         // root RNG seed (0 means time-derived)
	Profile  shape.Profile // request shaping; zero value means defaults

	Transport Transport        // request executor (required)
	Collector *stats.Collector // optional lifetime recorder
	Emit      stats.EmitFunc   // window summary sink
	Logger    RequestLogger    // optional verbose per-request logger

	EventBuffer    int                         // event channel capacity override
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	for i := range o.Targets {
		if o.Targets[i].Workers <= 0 {
			o.Targets[i].Workers = o.Workers
		}
	}
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
	if o.MaxRPS < 0 {
		o.MaxRPS = 0
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 64 * o.totalWorkers()
		if o.EventBuffer < 1024 {
			o.EventBuffer = 1024
		}
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

func (o *Options) totalWorkers() int {
	total := 0
	for _, t := range o.Targets {
		total += t.Workers
	}
	return total
}
