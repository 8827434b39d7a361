// Package otel provides OpenTelemetry tracer provider initialization and management.
package otel

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mrzor/buildlens/internal/config"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// logProxyConfig reports the proxy settings the HTTP exporter will pick up.
func logProxyConfig(logger *log.Logger) {
	httpProxy := os.Getenv("HTTP_PROXY")
	if httpProxy == "" {
		httpProxy = os.Getenv("http_proxy")
	}
	httpsProxy := os.Getenv("HTTPS_PROXY")
	if httpsProxy == "" {
		httpsProxy = os.Getenv("https_proxy")
	}

	if httpProxy != "" || httpsProxy != "" {
		logger.Debug("proxy configuration", "http_proxy", httpProxy, "https_proxy", httpsProxy)
	} else {
		logger.Debug("no proxy configured")
	}
}

// InitProvider initializes the OpenTelemetry tracer provider.
//
// Note: Uses OTLP/HTTP protocol. The HTTP client automatically honors HTTP_PROXY,
// HTTPS_PROXY, and NO_PROXY environment variables through Go's standard net/http transport.
// Spans started under ContextWithTraceID get that trace ID.
func InitProvider(cfg *config.OTELConfig, version string, logger *log.Logger) (*sdktrace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if logger == nil {
		logger = log.New(os.Stderr)
	}

	endpoint := cfg.GetEndpoint()
	logger.Debug("OTEL configuration",
		"service", cfg.ServiceName,
		"endpoint", endpoint,
		"insecure", cfg.Insecure(),
		"OTEL_EXPORTER_OTLP_ENDPOINT", cfg.ExporterEndpoint,
		"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", cfg.TracesEndpoint,
		"resource_attributes", cfg.ResourceAttributes,
	)
	logProxyConfig(logger)

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithTimeout(10 * time.Second),
	}
	if cfg.Insecure() {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if headers := cfg.ParseHeaders(); len(headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(headers))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	resourceAttrs := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	}
	if version != "" {
		resourceAttrs = append(resourceAttrs, resource.WithAttributes(semconv.ServiceVersion(version)))
	}
	if customAttrs := cfg.ParseResourceAttributes(); len(customAttrs) > 0 {
		resourceAttrs = append(resourceAttrs, resource.WithAttributes(customAttrs...))
	}

	res, err := resource.New(ctx, resourceAttrs...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithIDGenerator(NewIDGenerator()),
	)

	return tp, nil
}

// ShutdownProvider gracefully shuts down the tracer provider, flushing any remaining spans.
func ShutdownProvider(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}

	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}

	return nil
}
