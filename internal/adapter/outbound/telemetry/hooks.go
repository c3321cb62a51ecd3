package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/securevibes/authgate/internal/domain/gateway"
)

type startKey struct{}

// MetricsHook records request count and duration for every request sent
// through the gateway.
func MetricsHook(m *Metrics) gateway.Hook {
	return gateway.HookFuncs{
		Before: func(req *http.Request) (*http.Request, error) {
			return req.WithContext(context.WithValue(req.Context(), startKey{}, time.Now())), nil
		},
		After: func(req *http.Request, resp *http.Response, err error) (*http.Response, error) {
			if start, ok := req.Context().Value(startKey{}).(time.Time); ok {
				m.RequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
			}
			m.RequestsTotal.WithLabelValues(req.Method, statusLabel(resp, err)).Inc()
			return resp, err
		},
	}
}

// statusLabel converts a round-trip outcome to a label value.
func statusLabel(resp *http.Response, err error) string {
	switch {
	case err != nil || resp == nil:
		return "error"
	case resp.StatusCode == http.StatusUnauthorized:
		return "unauthorized"
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		return "ok"
	default:
		return "error"
	}
}

// TracingHook starts a client span for every request and propagates its
// context to the server in W3C traceparent headers.
func TracingHook(tp trace.TracerProvider) gateway.Hook {
	tracer := tp.Tracer("github.com/securevibes/authgate/gateway")
	propagator := propagation.TraceContext{}

	return gateway.HookFuncs{
		Before: func(req *http.Request) (*http.Request, error) {
			ctx, _ := tracer.Start(req.Context(), "HTTP "+req.Method,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("url.path", req.URL.Path),
					attribute.String("server.address", req.URL.Host),
				),
			)
			propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))
			return req.WithContext(ctx), nil
		},
		After: func(req *http.Request, resp *http.Response, err error) (*http.Response, error) {
			span := trace.SpanFromContext(req.Context())
			defer span.End()

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return resp, err
			}
			if resp != nil {
				span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
				if resp.StatusCode >= 400 {
					span.SetStatus(codes.Error, strconv.Itoa(resp.StatusCode))
				}
			}
			return resp, err
		},
	}
}
