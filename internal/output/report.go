// Package output renders window lines, per-request log lines, and the
// final report to plain writers.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/loopwork/footfall/internal/stats"
)

// PrintReport outputs a human-readable lifetime summary.
func PrintReport(w io.Writer, s stats.Stats) {
	fmt.Fprintln(w, "\n--- Traffic Summary ---")
	fmt.Fprintf(w, "Total Requests:     %d\n", s.Total)
	fmt.Fprintf(w, "OK (2xx):           %d\n", s.OK)
	fmt.Fprintf(w, "Client Errors:      %d\n", s.ClientErr)
	fmt.Fprintf(w, "Server Errors:      %d\n", s.ServerErr)
	fmt.Fprintf(w, "Transport Failures: %d\n", s.Failed)
	fmt.Fprintf(w, "Duration:           %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Requests/sec:       %.2f\n", s.RequestsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:              %dms\n", s.MinLatencyMS)
	fmt.Fprintf(w, "  Max:              %dms\n", s.MaxLatencyMS)
	fmt.Fprintf(w, "  Mean:             %dms\n", s.MeanLatencyMS)
	fmt.Fprintf(w, "  P50:              %dms\n", s.P50LatencyMS)
	fmt.Fprintf(w, "  P90:              %dms\n", s.P90LatencyMS)
	fmt.Fprintf(w, "  P99:              %dms\n", s.P99LatencyMS)

	if len(s.PerTarget) > 0 {
		fmt.Fprintln(w, "\nTarget Breakdown:")
		names := make([]string, 0, len(s.PerTarget))
		for name := range s.PerTarget {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			t := s.PerTarget[name]
			fmt.Fprintf(w, "  - %s: requests=%d ok=%d 4xx=%d 5xx=%d fail=%d\n",
				name, t.Count, t.OK, t.ClientErr, t.ServerErr, t.Failed)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, s stats.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
