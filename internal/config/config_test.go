package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/loopwork/footfall/internal/config"
)

func load(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return config.Load(fs)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Targets) != 0 {
		t.Errorf("Targets = %+v, want empty", cfg.Targets)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.Interval != 2*time.Second {
		t.Errorf("Interval = %v, want 2s", cfg.Interval)
	}
	if cfg.Duration != 0 {
		t.Errorf("Duration = %v, want 0", cfg.Duration)
	}
	if cfg.ConnectTimeout != 2*time.Second {
		t.Errorf("ConnectTimeout = %v, want 2s", cfg.ConnectTimeout)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
	if cfg.Resolver != "auto" {
		t.Errorf("Resolver = %q, want auto", cfg.Resolver)
	}
	if cfg.Namespace != "istio-system" || cfg.Service != "istio-ingressgateway" || cfg.PortName != "http2" {
		t.Errorf("kubectl defaults wrong: %q %q %q", cfg.Namespace, cfg.Service, cfg.PortName)
	}
	if cfg.Trace.Protocol != "grpc" || cfg.Trace.SampleRate != 1 {
		t.Errorf("Trace defaults wrong: %+v", cfg.Trace)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "footfall.yaml")
	if err := os.WriteFile(path, []byte(`
targets:
  - east
  - name: west
    url: http://192.0.2.10:30080
  - name: central
    context: kind-central
    workers: 12
workers: 4
interval: 5
duration: 90s
verbose: true
max_rps: 150
`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := load(t, "--config", path, "--workers", "6")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Targets) != 3 {
		t.Fatalf("len(Targets) = %d, want 3", len(cfg.Targets))
	}
	if cfg.Targets[0].Name != "east" {
		t.Errorf("Targets[0] = %+v", cfg.Targets[0])
	}
	if cfg.Targets[1].URL != "http://192.0.2.10:30080" {
		t.Errorf("Targets[1] = %+v", cfg.Targets[1])
	}
	if cfg.Targets[2].Context != "kind-central" || cfg.Targets[2].Workers != 12 {
		t.Errorf("Targets[2] = %+v", cfg.Targets[2])
	}
	if cfg.Workers != 6 {
		t.Errorf("flag must override file: Workers = %d, want 6", cfg.Workers)
	}
	if cfg.Interval != 5*time.Second {
		t.Errorf("Interval = %v, want 5s (bare numbers are seconds)", cfg.Interval)
	}
	if cfg.Duration != 90*time.Second {
		t.Errorf("Duration = %v, want 90s", cfg.Duration)
	}
	if !cfg.Verbose {
		t.Error("Verbose = false, want true")
	}
	if cfg.MaxRPS != 150 {
		t.Errorf("MaxRPS = %d, want 150", cfg.MaxRPS)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "footfall.json")
	if err := os.WriteFile(path, []byte(`{
		"targets": [{"name": "east", "url": "http://172.18.0.2:30080"}],
		"resolver": "static",
		"trace": {"endpoint": "collector:4317", "protocol": "http", "insecure": true, "sample_rate": 0.5}
	}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := load(t, "--config", path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Targets) != 1 || cfg.Targets[0].URL != "http://172.18.0.2:30080" {
		t.Errorf("Targets = %+v", cfg.Targets)
	}
	if cfg.Resolver != "static" {
		t.Errorf("Resolver = %q, want static", cfg.Resolver)
	}
	if cfg.Trace.Endpoint != "collector:4317" || cfg.Trace.Protocol != "http" {
		t.Errorf("Trace = %+v", cfg.Trace)
	}
	if !cfg.Trace.Insecure || cfg.Trace.SampleRate != 0.5 {
		t.Errorf("Trace = %+v", cfg.Trace)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := load(t, "--config", filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func validConfig() config.Config {
	return config.Config{
		Targets:        []config.TargetSpec{{Name: "east"}, {Name: "west"}},
		Workers:        8,
		Interval:       2 * time.Second,
		ConnectTimeout: 2 * time.Second,
		Timeout:        10 * time.Second,
		Resolver:       "auto",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateIssues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"no targets", func(c *config.Config) { c.Targets = nil }, "at least one target"},
		{"duplicate names", func(c *config.Config) { c.Targets = append(c.Targets, config.TargetSpec{Name: "east"}) }, "duplicate target name: east"},
		{"empty name", func(c *config.Config) { c.Targets[0].Name = " " }, "name cannot be empty"},
		{"zero workers", func(c *config.Config) { c.Workers = 0 }, "workers must be >= 1"},
		{"zero interval", func(c *config.Config) { c.Interval = 0 }, "interval must be > 0"},
		{"negative duration", func(c *config.Config) { c.Duration = -time.Second }, "duration must be >= 0"},
		{"zero timeout", func(c *config.Config) { c.Timeout = 0 }, "timeout must be > 0"},
		{"negative rps", func(c *config.Config) { c.MaxRPS = -1 }, "max-rps must be >= 0"},
		{"bad resolver", func(c *config.Config) { c.Resolver = "dns" }, "unknown resolver mode"},
		{"dashboard and json", func(c *config.Config) { c.Dashboard = true; c.JSONOutput = true }, "mutually exclusive"},
		{"bad trace protocol", func(c *config.Config) { c.Trace.Protocol = "udp" }, "trace-protocol"},
		{"bad sample rate", func(c *config.Config) { c.Trace.SampleRate = 1.5 }, "trace-sample"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
			var verr config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if len(verr.Issues()) == 0 {
				t.Fatal("ValidationError carries no issues")
			}
		})
	}
}

func TestTotalWorkers(t *testing.T) {
	cfg := config.Config{
		Workers: 8,
		Targets: []config.TargetSpec{{Name: "east"}, {Name: "west", Workers: 2}},
	}
	if got := cfg.TotalWorkers(); got != 10 {
		t.Fatalf("TotalWorkers() = %d, want 10", got)
	}
}
