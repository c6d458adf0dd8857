package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/loopwork/footfall/internal/kubeconfig"
)

type pruneOptions struct {
	kubeconfig   string
	prefix       string
	probeTimeout time.Duration
	dryRun       bool
}

func newPruneCommand() *cobra.Command {
	var opt pruneOptions
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove kubeconfig contexts whose clusters stopped answering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(cmd.Context(), opt, cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opt.kubeconfig, "kubeconfig", "", "Path to kubeconfig (defaults to $KUBECONFIG, then ~/.kube/config)")
	flags.StringVar(&opt.prefix, "prefix", "kind-", "Only inspect context names with this prefix")
	flags.DurationVar(&opt.probeTimeout, "probe-timeout", 2*time.Second, "Per-cluster reachability probe timeout")
	flags.BoolVar(&opt.dryRun, "dry-run", false, "Report what would be removed without rewriting the file")
	return cmd
}

func runPrune(ctx context.Context, opt pruneOptions, out io.Writer) error {
	path, err := kubeconfig.DefaultPath(opt.kubeconfig)
	if err != nil {
		return err
	}

	return kubeconfig.WithLock(ctx, path, func() error {
		f, err := kubeconfig.Load(path)
		if err != nil {
			return err
		}

		res := kubeconfig.Prune(ctx, f, kubeconfig.PruneOptions{
			Prefix: opt.prefix,
			DryRun: opt.dryRun,
			Probe:  kubeconfig.NewLivezProber(opt.probeTimeout),
		})

		for _, d := range res.Decisions {
			fmt.Fprintln(out, formatDecision(d, opt.dryRun))
		}
		if res.Changed {
			if err := f.Save(path); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, pruneSummary(res, path, opt.dryRun))
		return nil
	})
}

func formatDecision(d kubeconfig.Decision, dryRun bool) string {
	server := d.Server
	if server == "" {
		server = "(no cluster entry)"
	}
	switch {
	case !d.Removed:
		return fmt.Sprintf("%-24s %s reachable", d.Context, server)
	case dryRun:
		return fmt.Sprintf("%-24s %s unreachable, would remove", d.Context, server)
	default:
		return fmt.Sprintf("%-24s %s unreachable, removing", d.Context, server)
	}
}

func pruneSummary(res kubeconfig.Result, path string, dryRun bool) string {
	switch {
	case res.Removed == 0:
		return fmt.Sprintf("nothing to prune: %d context(s) inspected, all reachable", len(res.Decisions))
	case dryRun:
		return fmt.Sprintf("dry run: would remove %d of %d context(s) from %s", res.Removed, len(res.Decisions), path)
	default:
		return fmt.Sprintf("removed %d of %d context(s) from %s", res.Removed, len(res.Decisions), path)
	}
}
