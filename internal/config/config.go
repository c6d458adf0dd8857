package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/loopwork/footfall/internal/resolve"
)

// TargetSpec is one configured traffic destination before resolution.
type TargetSpec struct {
	Name    string `mapstructure:"name"`
	URL     string `mapstructure:"url"`
	Context string `mapstructure:"context"`
	Workers int    `mapstructure:"workers"`
}

// TraceConfig controls OTLP span export. An empty endpoint disables
// tracing entirely.
type TraceConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
}

type Config struct {
	Targets        []TargetSpec  `mapstructure:"targets"`
	Workers        int           `mapstructure:"workers"`
	Interval       time.Duration `mapstructure:"interval"`
	Duration       time.Duration `mapstructure:"duration"`
	Verbose        bool          `mapstructure:"verbose"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRPS         int           `mapstructure:"max_rps"`
	Seed           int64         `mapstructure:"seed"`
	Resolver       string        `mapstructure:"resolver"`
	Namespace      string        `mapstructure:"namespace"`
	Service        string        `mapstructure:"service"`
	PortName       string        `mapstructure:"port_name"`
	Dashboard      bool          `mapstructure:"dashboard"`
	JSONOutput     bool          `mapstructure:"json_output"`
	ConfigFile     string        `mapstructure:"-"`
	Trace          TraceConfig   `mapstructure:"trace"`
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if len(c.Targets) == 0 {
		issues = append(issues, "at least one target is required")
	}
	seen := map[string]bool{}
	for _, t := range c.Targets {
		if strings.TrimSpace(t.Name) == "" {
			issues = append(issues, "target name cannot be empty")
			continue
		}
		if seen[t.Name] {
			issues = append(issues, fmt.Sprintf("duplicate target name: %s", t.Name))
		}
		seen[t.Name] = true
		if t.Workers < 0 {
			issues = append(issues, fmt.Sprintf("target %s: workers must be >= 0", t.Name))
		}
	}

	if c.Workers < 1 {
		issues = append(issues, "workers must be >= 1")
	}
	if c.Interval <= 0 {
		issues = append(issues, "interval must be > 0")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.ConnectTimeout <= 0 {
		issues = append(issues, "connect-timeout must be > 0")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if c.MaxRPS < 0 {
		issues = append(issues, "max-rps must be >= 0")
	}
	if _, err := resolve.ParseMode(c.Resolver); err != nil {
		issues = append(issues, err.Error())
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json are mutually exclusive")
	}

	switch strings.ToLower(strings.TrimSpace(c.Trace.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("trace-protocol must be grpc or http, got %q", c.Trace.Protocol))
	}
	if c.Trace.SampleRate < 0 || c.Trace.SampleRate > 1 {
		issues = append(issues, "trace-sample must be within [0, 1]")
	}

	if c.TotalWorkers() > 512 {
		fmt.Fprintf(os.Stderr, "WARNING: %d workers configured in total. Ensure the demo clusters can absorb that much traffic.\n", c.TotalWorkers())
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// TotalWorkers is the worker count across all targets with the
// per-target default applied.
func (c Config) TotalWorkers() int {
	total := 0
	for _, t := range c.Targets {
		n := t.Workers
		if n <= 0 {
			n = c.Workers
		}
		total += n
	}
	return total
}
