package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RegisterFlags sets up the run command's flags on the provided set.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringSliceP("target", "t", nil, "Target to drive: name, name=url, or name=context (repeatable)")
	flags.IntP("workers", "w", 8, "Workers per target")
	flags.DurationP("interval", "i", 2*time.Second, "Stats window length")
	flags.DurationP("duration", "d", 0, "How long to run (0 means until interrupted)")
	flags.BoolP("verbose", "v", false, "Log every request")
	flags.Duration("connect-timeout", 2*time.Second, "TCP connect timeout per request")
	flags.Duration("timeout", 10*time.Second, "Overall per-request timeout")
	flags.Int("max-rps", 0, "Shared requests/sec ceiling across all workers (0 means unlimited)")
	flags.Int64("seed", 0, "Random seed (0 derives one from the clock)")

	flags.String("resolver", "auto", "Target resolver: auto, static, env, or kubectl")
	flags.String("namespace", "istio-system", "Gateway service namespace for kubectl discovery")
	flags.String("service", "istio-ingressgateway", "Gateway service name for kubectl discovery")
	flags.String("port-name", "http2", "Gateway service port name for kubectl discovery")

	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.Bool("json", false, "Emit the final report as JSON")
	flags.StringP("config", "c", "", "Path to configuration file (JSON or YAML)")

	flags.String("trace-endpoint", "", "OTLP endpoint for span export (empty disables tracing)")
	flags.String("trace-protocol", "grpc", "OTLP transport: grpc or http")
	flags.Bool("trace-insecure", false, "Disable TLS for span export")
	flags.Float64("trace-sample", 1, "Trace sampling ratio in [0, 1]")
}

// Load builds a Config from a parsed flag set, reading the config file
// first so explicit flags override it. Validation is the caller's step.
func Load(flags *pflag.FlagSet) (*Config, error) {
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Workers:        8,
		Interval:       2 * time.Second,
		ConnectTimeout: 2 * time.Second,
		Timeout:        10 * time.Second,
		Resolver:       "auto",
		Namespace:      "istio-system",
		Service:        "istio-ingressgateway",
		PortName:       "http2",
		Trace:          TraceConfig{Protocol: "grpc", SampleRate: 1},
		ConfigFile:     configPath,
	}

	if configPath != "" {
		v := viper.New()
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := applyConfigSettings(cfg, v.AllSettings()); err != nil {
			return nil, err
		}
	}

	if err := applyFlagOverrides(cfg, flags); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "targets"); ok {
		targets, err := parseTargets(raw)
		if err != nil {
			return fmt.Errorf("targets: %w", err)
		}
		cfg.Targets = targets
	}

	if raw, ok := lookupSetting(settings, "workers"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("workers: %w", err)
		}
		if val != 0 {
			cfg.Workers = val
		}
	}

	if raw, ok := lookupSetting(settings, "interval"); ok {
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("interval: %w", err)
		}
		if val != 0 {
			cfg.Interval = val
		}
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = val
	}

	if raw, ok := lookupSetting(settings, "verbose"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("verbose: %w", err)
		}
		cfg.Verbose = val
	}

	if raw, ok := lookupSetting(settings, "connect_timeout", "connectTimeout"); ok {
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("connect_timeout: %w", err)
		}
		if val != 0 {
			cfg.ConnectTimeout = val
		}
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		if val != 0 {
			cfg.Timeout = val
		}
	}

	if raw, ok := lookupSetting(settings, "max_rps", "maxRPS"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("max_rps: %w", err)
		}
		cfg.MaxRPS = val
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt64(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = val
	}

	if raw, ok := lookupSetting(settings, "resolver"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("resolver: %w", err)
		}
		if val != "" {
			cfg.Resolver = val
		}
	}

	if raw, ok := lookupSetting(settings, "namespace"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("namespace: %w", err)
		}
		if val != "" {
			cfg.Namespace = val
		}
	}

	if raw, ok := lookupSetting(settings, "service"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("service: %w", err)
		}
		if val != "" {
			cfg.Service = val
		}
	}

	if raw, ok := lookupSetting(settings, "port_name", "portName"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("port_name: %w", err)
		}
		if val != "" {
			cfg.PortName = val
		}
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "json_output", "json"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("json_output: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "trace"); ok {
		trace, err := parseTrace(raw, cfg.Trace)
		if err != nil {
			return fmt.Errorf("trace: %w", err)
		}
		cfg.Trace = trace
	}

	return nil
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		vals, err := fs.GetStringSlice("target")
		if err != nil {
			return err
		}
		targets := make([]TargetSpec, 0, len(vals))
		for _, raw := range vals {
			spec, err := ParseTargetSpec(raw)
			if err != nil {
				return err
			}
			targets = append(targets, spec)
		}
		cfg.Targets = targets
	}
	if fs.Changed("workers") {
		val, err := fs.GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Workers = val
	}
	if fs.Changed("interval") {
		val, err := fs.GetDuration("interval")
		if err != nil {
			return err
		}
		cfg.Interval = val
	}
	if fs.Changed("duration") {
		val, err := fs.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Duration = val
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("connect-timeout") {
		val, err := fs.GetDuration("connect-timeout")
		if err != nil {
			return err
		}
		cfg.ConnectTimeout = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("max-rps") {
		val, err := fs.GetInt("max-rps")
		if err != nil {
			return err
		}
		cfg.MaxRPS = val
	}
	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if fs.Changed("resolver") {
		val, err := fs.GetString("resolver")
		if err != nil {
			return err
		}
		cfg.Resolver = val
	}
	if fs.Changed("namespace") {
		val, err := fs.GetString("namespace")
		if err != nil {
			return err
		}
		cfg.Namespace = val
	}
	if fs.Changed("service") {
		val, err := fs.GetString("service")
		if err != nil {
			return err
		}
		cfg.Service = val
	}
	if fs.Changed("port-name") {
		val, err := fs.GetString("port-name")
		if err != nil {
			return err
		}
		cfg.PortName = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("json") {
		val, err := fs.GetBool("json")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Trace.Endpoint = val
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Trace.Protocol = val
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Trace.Insecure = val
	}
	if fs.Changed("trace-sample") {
		val, err := fs.GetFloat64("trace-sample")
		if err != nil {
			return err
		}
		cfg.Trace.SampleRate = val
	}
	return nil
}

// parseTargets accepts both shorthand strings ("east", "west=url") and
// structured map entries from the config file.
func parseTargets(value interface{}) ([]TargetSpec, error) {
	if value == nil {
		return nil, nil
	}
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	targets := make([]TargetSpec, 0, len(items))
	for idx, item := range items {
		if s, ok := item.(string); ok {
			spec, err := ParseTargetSpec(s)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", idx, err)
			}
			targets = append(targets, spec)
			continue
		}
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		spec, err := buildTarget(entry)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		targets = append(targets, spec)
	}
	return targets, nil
}

func buildTarget(settings map[string]interface{}) (TargetSpec, error) {
	var spec TargetSpec
	if raw, ok := lookupSetting(settings, "name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TargetSpec{}, fmt.Errorf("name: %w", err)
		}
		spec.Name = val
	}
	if raw, ok := lookupSetting(settings, "url"); ok {
		val, err := asString(raw)
		if err != nil {
			return TargetSpec{}, fmt.Errorf("url: %w", err)
		}
		spec.URL = val
	}
	if raw, ok := lookupSetting(settings, "context"); ok {
		val, err := asString(raw)
		if err != nil {
			return TargetSpec{}, fmt.Errorf("context: %w", err)
		}
		spec.Context = val
	}
	if raw, ok := lookupSetting(settings, "workers"); ok {
		val, err := asInt(raw)
		if err != nil {
			return TargetSpec{}, fmt.Errorf("workers: %w", err)
		}
		spec.Workers = val
	}
	return spec, nil
}

func parseTrace(value interface{}, base TraceConfig) (TraceConfig, error) {
	if value == nil {
		return base, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return TraceConfig{}, err
	}
	trace := base
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TraceConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		trace.Endpoint = val
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TraceConfig{}, fmt.Errorf("protocol: %w", err)
		}
		if val != "" {
			trace.Protocol = val
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TraceConfig{}, fmt.Errorf("insecure: %w", err)
		}
		trace.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "sample_rate", "sampleRate"); ok {
		val, err := asFloat(raw)
		if err != nil {
			return TraceConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		trace.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "service_name", "serviceName"); ok {
		val, err := asString(raw)
		if err != nil {
			return TraceConfig{}, fmt.Errorf("service_name: %w", err)
		}
		trace.ServiceName = val
	}
	return trace, nil
}
