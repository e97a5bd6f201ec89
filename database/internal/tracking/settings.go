// Package tracking wraps a connector with statement logging, OpenTelemetry
// spans and metrics.
package tracking

import (
	"time"

	"github.com/gaborage/qdb/config"
	"github.com/gaborage/qdb/logger"
)

const (
	// DefaultSlowQueryThreshold defines the default threshold for slow query detection
	DefaultSlowQueryThreshold = 200 * time.Millisecond
	// DefaultMaxQueryLength defines the default maximum query length for logging
	DefaultMaxQueryLength = 1000
)

// Settings controls what the tracker logs.
type Settings struct {
	slowQueryThreshold time.Duration
	maxQueryLength     int
}

// Context groups what TrackDBOperation needs to know about the connector.
type Context struct {
	Logger   logger.Logger
	Vendor   string
	Settings Settings
}

// NewSettings reads the query tracking settings of cfg. A nil cfg or
// non-positive values fall back to the defaults.
func NewSettings(cfg *config.DatabaseConfig) Settings {
	settings := Settings{
		slowQueryThreshold: DefaultSlowQueryThreshold,
		maxQueryLength:     DefaultMaxQueryLength,
	}
	if cfg == nil {
		return settings
	}

	if cfg.Query.Slow.Threshold > 0 {
		settings.slowQueryThreshold = cfg.Query.Slow.Threshold
	}
	if cfg.Query.Log.MaxLength > 0 {
		settings.maxQueryLength = cfg.Query.Log.MaxLength
	}
	return settings
}

// SlowQueryThreshold returns the duration above which statements are logged at warn level.
func (s Settings) SlowQueryThreshold() time.Duration {
	return s.slowQueryThreshold
}

// MaxQueryLength returns the maximum logged SQL length in runes.
func (s Settings) MaxQueryLength() int {
	return s.maxQueryLength
}
