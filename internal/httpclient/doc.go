// Package httpclient performs the generator's individual requests.
//
// Each call to [Client.Perform] issues a single GET on a fresh
// connection and reports the status code plus the elapsed wall time.
// Connection reuse is deliberately disabled: the traffic exists to keep
// a demo visibly busy, and a new dial per request keeps accept and
// connection counters moving on the receiving side, at the cost of
// throughput nobody asked for.
//
// # Timeouts
//
// [New] takes two bounds: the dial timeout (how long a connection
// attempt may take) and the overall timeout covering the whole
// request including the body read. Both are hard requirements for
// bounded shutdown, since a worker blocked in a request must be able
// to return promptly once cancelled:
//
//	client := httpclient.New(2*time.Second, 10*time.Second)
//	status, elapsed, err := client.Perform(ctx, url, header)
//
// A non-nil error means no HTTP status was obtained and the attempt
// counts as a transport failure; status codes of any kind, including
// 4xx and 5xx, come back with a nil error.
package httpclient
