package main

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/loopwork/footfall/internal/config"
	"github.com/loopwork/footfall/internal/dashboard"
	"github.com/loopwork/footfall/internal/httpclient"
	"github.com/loopwork/footfall/internal/output"
	"github.com/loopwork/footfall/internal/resolve"
	"github.com/loopwork/footfall/internal/stats"
	"github.com/loopwork/footfall/internal/tracing"
	"github.com/loopwork/footfall/internal/traffic"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate traffic against the configured targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runTraffic(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runTraffic resolves every target, spins up the fleet, and prints the
// final report once the run drains. Request failures are counted in the
// report, never returned as an error.
func runTraffic(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	mode, err := resolve.ParseMode(cfg.Resolver)
	if err != nil {
		return err
	}
	resolver := resolve.New(resolve.Options{
		Mode: mode,
		Kubectl: resolve.KubectlOptions{
			Namespace: cfg.Namespace,
			Service:   cfg.Service,
			PortName:  cfg.PortName,
		},
	})

	targets := make([]traffic.Target, 0, len(cfg.Targets))
	names := make([]string, 0, len(cfg.Targets))
	for _, spec := range cfg.Targets {
		baseURL, err := resolver.Resolve(ctx, resolve.Spec{
			Name:    spec.Name,
			URL:     spec.URL,
			Context: spec.Context,
		})
		if err != nil {
			return err
		}
		targets = append(targets, traffic.Target{Name: spec.Name, BaseURL: baseURL, Workers: spec.Workers})
		names = append(names, spec.Name)
	}

	provider, err := tracing.Init(ctx, cfg.Trace)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	client := httpclient.New(cfg.ConnectTimeout, cfg.Timeout)
	var transport traffic.Transport = client
	if provider.Enabled() {
		transport = tracing.WrapTransport(client, provider.Tracer())
	}

	collector := stats.NewCollector()

	opt := traffic.Options{
		Targets:   targets,
		Workers:   cfg.Workers,
		Interval:  cfg.Interval,
		Duration:  cfg.Duration,
		MaxRPS:    cfg.MaxRPS,
		Seed:      cfg.Seed,
		Transport: transport,
		Collector: collector,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var dash *dashboard.Dashboard
	switch {
	case cfg.Dashboard:
		dash, err = dashboard.New(collector, dashboard.RunConfig{
			Targets:    names,
			Workers:    cfg.TotalWorkers(),
			Interval:   cfg.Interval,
			Duration:   cfg.Duration,
			MaxRPS:     cfg.MaxRPS,
			Resolver:   cfg.Resolver,
			ConfigFile: cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
	case cfg.JSONOutput:
		// Quiet until the final report.
	default:
		printer := output.NewWindowPrinter(stdout, names)
		opt.Emit = printer.Emit
		if cfg.Verbose {
			opt.Logger = output.NewRequestLog(stdout)
		}
	}

	fleet := traffic.New(opt)
	result := fleet.Run(runCtx)

	// Restore the terminal before the report prints.
	if dash != nil {
		dash.Stop()
	}

	finalStats := collector.Stats(result.Duration)
	if cfg.JSONOutput {
		return output.PrintJSONReport(stdout, finalStats)
	}
	output.PrintReport(stdout, finalStats)
	return nil
}
