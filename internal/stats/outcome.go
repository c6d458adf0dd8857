package stats

// StatusTransportFailure marks an outcome where no HTTP status was
// obtained (DNS, TCP, TLS, or timeout failure).
const StatusTransportFailure = 0

// Outcome describes one finished request attempt. Latency is whole
// milliseconds, truncated; transport failures carry latency 0.
type Outcome struct {
	Target    string
	Status    int
	LatencyMS int64
}

// Bucket classifies an outcome for counting.
type Bucket int

const (
	BucketOK Bucket = iota
	BucketClientError
	BucketServerError
	BucketFailed
)

// Classify maps a status code to its bucket. Anything outside the
// recognized ranges, including the transport-failure sentinel and
// redirect codes, lands in BucketFailed.
func Classify(status int) Bucket {
	switch {
	case status >= 200 && status < 300:
		return BucketOK
	case status >= 400 && status < 500:
		return BucketClientError
	case status >= 500 && status < 600:
		return BucketServerError
	default:
		return BucketFailed
	}
}
