package output

import (
	"fmt"
	"io"
	"time"

	"github.com/loopwork/footfall/internal/stats"
)

// timeLayout is the millisecond wall-clock prefix on every emitted line.
const timeLayout = "15:04:05.000"

// WindowPrinter renders one summary line per target per window. Target
// names are padded to the longest configured name so the columns line
// up when several targets interleave.
type WindowPrinter struct {
	w     io.Writer
	width int
}

func NewWindowPrinter(w io.Writer, names []string) *WindowPrinter {
	width := 0
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}
	return &WindowPrinter{w: w, width: width}
}

// Emit is wired into the aggregator as its flush callback.
func (p *WindowPrinter) Emit(ts time.Time, target string, w stats.WindowStats) {
	fmt.Fprintf(p.w, "%s %-*s requests=%d ok=%d 4xx=%d 5xx=%d fail=%d avg=%dms min=%dms max=%dms\n",
		ts.Format(timeLayout), p.width, target,
		w.Count, w.OK, w.ClientErr, w.ServerErr, w.Failed,
		w.AvgLatency(), w.MinLatency, w.MaxLatency)
}
