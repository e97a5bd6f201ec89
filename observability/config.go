package observability

import (
	"fmt"
	"strings"
	"time"
)

const (
	// EndpointStdout writes telemetry to stdout instead of an OTLP collector.
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default deployment environment.
	EnvironmentDevelopment = "development"
)

// BoolPtr returns a pointer to v, for the optional toggles in Config.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Config controls where the spans and metrics recorded around statements go.
// It is unmarshaled from the observability section of the qdb configuration.
type Config struct {
	// Enabled turns the SDK providers on. When false every operation is a no-op.
	Enabled bool `koanf:"enabled"`

	Service     ServiceConfig `koanf:"service"`
	Environment string        `koanf:"environment"`
	Trace       TraceConfig   `koanf:"trace"`
	Metrics     MetricsConfig `koanf:"metrics"`
}

// ServiceConfig identifies the process in exported telemetry.
type ServiceConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// TraceConfig defines span export.
type TraceConfig struct {
	// Enabled is nil when unset; it then follows Config.Enabled.
	Enabled *bool `koanf:"enabled"`

	// Endpoint is "stdout" or a collector address. HTTP endpoints carry a
	// scheme ("http://localhost:4318"), gRPC endpoints do not ("localhost:4317").
	Endpoint string            `koanf:"endpoint"`
	Protocol string            `koanf:"protocol"`
	Insecure bool              `koanf:"insecure"`
	Headers  map[string]string `koanf:"headers"`

	Sample SampleConfig `koanf:"sample"`
	Batch  BatchConfig  `koanf:"batch"`
}

// SampleConfig holds the ratio of traces kept.
type SampleConfig struct {
	// Rate between 0.0 and 1.0. nil means 1.0.
	Rate *float64 `koanf:"rate"`
}

// BatchConfig tunes the batch span processor.
type BatchConfig struct {
	Timeout time.Duration `koanf:"timeout"`
	Size    int           `koanf:"size"`
}

// MetricsConfig defines metric export.
type MetricsConfig struct {
	Enabled  *bool             `koanf:"enabled"`
	Endpoint string            `koanf:"endpoint"`
	Protocol string            `koanf:"protocol"`
	Insecure bool              `koanf:"insecure"`
	Headers  map[string]string `koanf:"headers"`

	// Interval between periodic exports.
	Interval time.Duration `koanf:"interval"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	if c.Trace.Endpoint == "" {
		c.Trace.Endpoint = EndpointStdout
	}
	if c.Trace.Protocol == "" {
		c.Trace.Protocol = ProtocolHTTP
	}
	if c.Enabled && c.Trace.Enabled == nil {
		c.Trace.Enabled = BoolPtr(true)
	}
	if c.Trace.Sample.Rate == nil {
		c.Trace.Sample.Rate = Float64Ptr(1.0)
	}
	if c.Trace.Batch.Timeout == 0 {
		if c.Environment == EnvironmentDevelopment || c.Trace.Endpoint == EndpointStdout {
			c.Trace.Batch.Timeout = 500 * time.Millisecond
		} else {
			c.Trace.Batch.Timeout = 5 * time.Second
		}
	}
	if c.Trace.Batch.Size == 0 {
		c.Trace.Batch.Size = 512
	}

	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = EndpointStdout
	}
	if c.Metrics.Protocol == "" {
		c.Metrics.Protocol = c.Trace.Protocol
	}
	if c.Enabled && c.Metrics.Enabled == nil {
		c.Metrics.Enabled = BoolPtr(true)
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 10 * time.Second
	}
}

// Validate checks an enabled configuration. A disabled one is always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}

	if enabled(c.Trace.Enabled) {
		if c.Trace.Sample.Rate != nil && (*c.Trace.Sample.Rate < 0 || *c.Trace.Sample.Rate > 1) {
			return fmt.Errorf("%w: got %v", ErrInvalidSampleRate, *c.Trace.Sample.Rate)
		}
		if err := validateEndpoint("trace", c.Trace.Endpoint, c.Trace.Protocol); err != nil {
			return err
		}
	}
	if enabled(c.Metrics.Enabled) {
		if c.Metrics.Interval < 0 {
			return fmt.Errorf("%w: got %s", ErrInvalidInterval, c.Metrics.Interval)
		}
		if err := validateEndpoint("metrics", c.Metrics.Endpoint, c.Metrics.Protocol); err != nil {
			return err
		}
	}
	return nil
}

func validateEndpoint(signal, endpoint, protocol string) error {
	if endpoint == EndpointStdout {
		return nil
	}

	hasScheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
	switch protocol {
	case ProtocolHTTP:
		if !hasScheme {
			return fmt.Errorf("%s endpoint %q needs an http:// or https:// scheme: %w", signal, endpoint, ErrInvalidEndpointFormat)
		}
	case ProtocolGRPC:
		if hasScheme {
			return fmt.Errorf("%s endpoint %q must be host:port for grpc: %w", signal, endpoint, ErrInvalidEndpointFormat)
		}
	default:
		return fmt.Errorf("%s protocol %q: %w", signal, protocol, ErrInvalidProtocol)
	}
	return nil
}

func enabled(b *bool) bool {
	return b != nil && *b
}
