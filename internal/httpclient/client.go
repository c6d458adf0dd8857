package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"
)

// Client issues the generator's requests. Keep-alives are disabled on
// purpose: every request is an independent connection attempt, which
// keeps per-request connection activity visible on the receiving side.
type Client struct {
	httpClient *http.Client
}

// New builds a client with the given dial and overall request timeouts.
// Non-positive values fall back to 2s and 10s respectively.
func New(connectTimeout, requestTimeout time.Duration) *Client {
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}

	dialer := &net.Dialer{
		Timeout: connectTimeout,
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		DisableKeepAlives:   true,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
	}
}

// Perform issues one GET against url and reports the status code and
// elapsed wall time including the body read. Transport-level failures
// (DNS, dial, TLS, timeout, cancellation) return a non-nil error; HTTP
// error statuses are results, not errors.
func (c *Client) Perform(ctx context.Context, url string, header http.Header) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	if header != nil {
		req.Header = header
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, time.Since(start), err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
	return resp.StatusCode, time.Since(start), nil
}
