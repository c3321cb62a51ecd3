package telemetry

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName identifies authgate spans.
const ServiceName = "authgate"

// NewTracerProvider creates a tracer provider that writes finished spans as
// JSON to w. The caller must Shutdown the provider to flush pending spans.
func NewTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", ServiceName))

	return sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	), nil
}
