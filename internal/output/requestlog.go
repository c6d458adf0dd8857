package output

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/loopwork/footfall/internal/stats"
)

// RequestLog writes one line per completed request when verbose mode
// is on. Workers log concurrently, so writes are serialized.
type RequestLog struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

func NewRequestLog(w io.Writer) *RequestLog {
	return &RequestLog{w: w, now: time.Now}
}

// LogRequest renders "timestamp target#slot GET path status latency".
// Transport failures print ERR in place of a status code.
func (l *RequestLog) LogRequest(target string, slot int, path string, status int, latency time.Duration) {
	text := strconv.Itoa(status)
	if status == stats.StatusTransportFailure {
		text = "ERR"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s %s#%d GET %s %s %dms\n",
		l.now().Format(timeLayout), target, slot, path, text, latency.Milliseconds())
}
