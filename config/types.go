package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/gaborage/qdb/observability"
)

// Config is the complete qdb configuration. Keys are single words per level so
// that environment variables map onto them directly: QDB_DATABASE_POOL_MAX_CONNECTIONS
// sets database.pool.max.connections.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Database DatabaseConfig `koanf:"database"`
	Builder  BuilderConfig  `koanf:"builder"`
	Log      LogConfig      `koanf:"log"`

	Observability observability.Config `koanf:"observability"`

	// k holds the merged sources for ad-hoc lookups.
	k *koanf.Koanf `json:"-" yaml:"-" mapstructure:"-"`
}

type AppConfig struct {
	Name string `koanf:"name" validate:"required"`
	Env  string `koanf:"env" validate:"oneof=development staging production"`
}

// DatabaseConfig selects and configures the connector.
type DatabaseConfig struct {
	Type     string `koanf:"type" validate:"required,oneof=mysql sqlite postgresql"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"omitempty,min=1,max=65535"`
	Database string `koanf:"database"` // database name, or the file path for sqlite
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	// ConnectionString is handed to the driver verbatim and overrides the fields above.
	ConnectionString string `koanf:"connectionstring"`

	Pool  PoolConfig  `koanf:"pool"`
	Query QueryConfig `koanf:"query"`
}

type PoolConfig struct {
	Max      PoolMaxConfig  `koanf:"max"`
	Idle     PoolIdleConfig `koanf:"idle"`
	Lifetime LifetimeConfig `koanf:"lifetime"`
}

type PoolMaxConfig struct {
	Connections int `koanf:"connections" validate:"min=0"`
}

type PoolIdleConfig struct {
	Connections int           `koanf:"connections" validate:"min=0"`
	Time        time.Duration `koanf:"time" validate:"min=0"`
}

type LifetimeConfig struct {
	Max time.Duration `koanf:"max" validate:"min=0"`
}

// QueryConfig tunes statement tracking.
type QueryConfig struct {
	Slow SlowQueryConfig `koanf:"slow"`
	Log  QueryLogConfig  `koanf:"log"`
}

type SlowQueryConfig struct {
	// Threshold above which a statement is logged at warn level.
	Threshold time.Duration `koanf:"threshold"`
}

type QueryLogConfig struct {
	// MaxLength truncates logged SQL, in runes.
	MaxLength int `koanf:"max"`
}

// BuilderConfig holds the builder options that can come from configuration.
type BuilderConfig struct {
	Extended  bool   `koanf:"extended"`
	Prefix    string `koanf:"prefix" validate:"omitempty,alphanum"`
	Table     string `koanf:"table"`
	Backticks bool   `koanf:"backticks"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty"`
}
