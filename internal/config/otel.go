package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/otel/attribute"
)

// OTELConfig holds OpenTelemetry configuration from environment variables
type OTELConfig struct {
	ServiceName        string `env:"OTEL_SERVICE_NAME" envDefault:"buildlens"`
	ResourceAttributes string `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:""`
	ExporterEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	TracesEndpoint     string `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT" envDefault:""`
	Headers            string `env:"OTEL_EXPORTER_OTLP_HEADERS" envDefault:""`
}

// ParseOTELConfig parses OTEL configuration from environment variables
func ParseOTELConfig() (*OTELConfig, error) {
	var cfg OTELConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse OTEL config: %w", err)
	}
	return &cfg, nil
}

// GetEndpoint returns the host:port traces are exported to.
// Priority: OTEL_EXPORTER_OTLP_TRACES_ENDPOINT > OTEL_EXPORTER_OTLP_ENDPOINT > default
func (c *OTELConfig) GetEndpoint() string {
	endpoint, _ := c.endpoint()
	return endpoint
}

// Insecure reports whether the endpoint is plain HTTP. Endpoints without a
// scheme are treated as plain HTTP.
func (c *OTELConfig) Insecure() bool {
	_, secure := c.endpoint()
	return !secure
}

func (c *OTELConfig) endpoint() (string, bool) {
	raw := c.TracesEndpoint
	if raw == "" {
		raw = c.ExporterEndpoint
	}
	if raw == "" {
		return "localhost:4318", false
	}

	secure := strings.HasPrefix(raw, "https://")
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		raw = raw[:i]
	}
	return raw, secure
}

// ParseResourceAttributes parses the OTEL_RESOURCE_ATTRIBUTES string
// Format: key1=value1,key2=value2
func (c *OTELConfig) ParseResourceAttributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for key, value := range parsePairs(c.ResourceAttributes) {
		attrs = append(attrs, attribute.String(key, value))
	}
	return attrs
}

// ParseHeaders parses the OTEL_EXPORTER_OTLP_HEADERS string
// Format: key1=value1,key2=value2
func (c *OTELConfig) ParseHeaders() map[string]string {
	headers := make(map[string]string)
	for key, value := range parsePairs(c.Headers) {
		headers[key] = value
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

// parsePairs yields key=value pairs in input order, skipping malformed ones.
func parsePairs(s string) func(yield func(string, string) bool) {
	return func(yield func(string, string) bool) {
		if s == "" {
			return
		}
		for _, pair := range strings.Split(s, ",") {
			kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
			if len(kv) != 2 {
				continue
			}
			key := strings.TrimSpace(kv[0])
			if key == "" {
				continue
			}
			if !yield(key, strings.TrimSpace(kv[1])) {
				return
			}
		}
	}
}
