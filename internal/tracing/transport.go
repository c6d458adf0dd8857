package tracing

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Transport mirrors the request hook the traffic workers drive, so the
// middleware composes without a dependency in either direction.
type Transport interface {
	Perform(ctx context.Context, rawURL string, header http.Header) (int, time.Duration, error)
}

type tracedTransport struct {
	next   Transport
	tracer trace.Tracer
}

// WrapTransport opens a client span around every request and injects
// W3C trace context into its headers before handing off to next.
func WrapTransport(next Transport, tracer trace.Tracer) Transport {
	return &tracedTransport{next: next, tracer: tracer}
}

func (t *tracedTransport) Perform(ctx context.Context, rawURL string, header http.Header) (int, time.Duration, error) {
	ctx, span := t.tracer.Start(ctx, "GET "+pathOf(rawURL),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", http.MethodGet),
		attribute.String("url.full", rawURL),
	)
	if id := header.Get("X-Request-Id"); id != "" {
		span.SetAttributes(attribute.String("footfall.request_id", id))
	}
	InjectHTTPHeaders(ctx, header)

	status, elapsed, err := t.next.Perform(ctx, rawURL, header)

	EndRequestSpan(span, status, err)
	return status, elapsed, err
}

// EndRequestSpan finishes a client span, recording the response status
// and marking 5xx answers and transport errors as failed.
func EndRequestSpan(span trace.Span, status int, err error) {
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= http.StatusInternalServerError:
		span.SetStatus(codes.Error, http.StatusText(status))
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
