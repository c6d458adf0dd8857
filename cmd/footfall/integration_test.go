package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/loopwork/footfall/internal/config"
	"github.com/loopwork/footfall/internal/stubsite"
)

// syncBuffer serializes writes from the request logger and the window
// printer, which run on different goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func trafficConfig(url string) *config.Config {
	return &config.Config{
		Targets:        []config.TargetSpec{{Name: "east", URL: url}},
		Workers:        2,
		Interval:       time.Second,
		Duration:       200 * time.Millisecond,
		ConnectTimeout: 2 * time.Second,
		Timeout:        5 * time.Second,
		Seed:           1,
		Resolver:       "static",
		Trace:          config.TraceConfig{Protocol: "grpc", SampleRate: 1},
	}
}

// TestIntegration_RunAgainstStubSite drives the full pipeline, from
// resolution through the fleet to the JSON report, against the stub
// storefront.
func TestIntegration_RunAgainstStubSite(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	srv := httptest.NewServer(stubsite.Handler(stubsite.Options{Seed: 1}))
	defer srv.Close()

	cfg := trafficConfig(srv.URL)
	cfg.JSONOutput = true

	var buf bytes.Buffer
	if err := runTraffic(context.Background(), cfg, &buf); err != nil {
		t.Fatalf("runTraffic() error = %v", err)
	}

	var report struct {
		Total     int64 `json:"total"`
		OK        int64 `json:"ok"`
		ClientErr int64 `json:"4xx"`
		ServerErr int64 `json:"5xx"`
		Failed    int64 `json:"transport_failures"`
		Targets   map[string]struct {
			Requests int64 `json:"requests"`
		} `json:"targets"`
	}
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, buf.String())
	}

	if report.Total < 1 {
		t.Fatalf("total = %d, want at least one request", report.Total)
	}
	if report.Failed != 0 || report.ServerErr != 0 {
		t.Errorf("failures against the stub site: %+v", report)
	}
	if report.OK+report.ClientErr != report.Total {
		t.Errorf("buckets do not add up: %+v", report)
	}
	if report.Targets["east"].Requests != report.Total {
		t.Errorf("east requests = %d, want %d", report.Targets["east"].Requests, report.Total)
	}
}

// TestIntegration_RunPrintsWindowsAndReport checks the human output
// mode: at least one window line plus the final summary.
func TestIntegration_RunPrintsWindowsAndReport(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	srv := httptest.NewServer(stubsite.Handler(stubsite.Options{Seed: 1}))
	defer srv.Close()

	var buf bytes.Buffer
	if err := runTraffic(context.Background(), trafficConfig(srv.URL), &buf); err != nil {
		t.Fatalf("runTraffic() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "east") || !strings.Contains(out, "requests=") {
		t.Errorf("output missing window lines:\n%s", out)
	}
	if !strings.Contains(out, "--- Traffic Summary ---") {
		t.Errorf("output missing the final report:\n%s", out)
	}
}

// TestIntegration_VerboseLogsRequests checks that verbose mode writes
// one line per finished request alongside the windows.
func TestIntegration_VerboseLogsRequests(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	srv := httptest.NewServer(stubsite.Handler(stubsite.Options{Seed: 1}))
	defer srv.Close()

	cfg := trafficConfig(srv.URL)
	cfg.Verbose = true

	var buf syncBuffer
	if err := runTraffic(context.Background(), cfg, &buf); err != nil {
		t.Fatalf("runTraffic() error = %v", err)
	}

	if !strings.Contains(buf.String(), "east#") || !strings.Contains(buf.String(), "GET /") {
		t.Errorf("output missing verbose request lines:\n%s", buf.String())
	}
}

func TestIntegration_ResolutionFailureIsFatal(t *testing.T) {
	cfg := trafficConfig("")
	cfg.Targets = []config.TargetSpec{{Name: "east"}}

	var buf bytes.Buffer
	err := runTraffic(context.Background(), cfg, &buf)
	if err == nil {
		t.Fatal("expected a resolution error for a static target without a URL")
	}
	if !strings.Contains(err.Error(), "east") {
		t.Errorf("error = %v, want it to name the target", err)
	}
	if buf.Len() != 0 {
		t.Errorf("no traffic output expected before resolution, got:\n%s", buf.String())
	}
}

func TestIntegration_CancelStopsUnboundedRun(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	srv := httptest.NewServer(stubsite.Handler(stubsite.Options{Seed: 1}))
	defer srv.Close()

	cfg := trafficConfig(srv.URL)
	cfg.Duration = 0 // unbounded
	cfg.JSONOutput = true

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	var buf bytes.Buffer
	start := time.Now()
	if err := runTraffic(ctx, cfg, &buf); err != nil {
		t.Fatalf("runTraffic() error = %v", err)
	}
	// Shutdown is bounded by one in-flight request plus a short sleep;
	// allow some scheduling fudge.
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("run took %v after cancel", elapsed)
	}
	if !bytes.Contains(buf.Bytes(), []byte("total")) {
		t.Errorf("missing final JSON report:\n%s", buf.String())
	}
}
