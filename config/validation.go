package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gaborage/qdb/observability"
)

const (
	defaultSlowQueryThreshold = 200 * time.Millisecond
	defaultMaxQueryLength     = 1000
)

// Database types accepted in database.type.
const (
	MySQL      = "mysql"
	SQLite     = "sqlite"
	PostgreSQL = "postgresql"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator reports field errors by their koanf path instead of the Go field name.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks cfg and fills in query tracking defaults. The first problem
// is returned as a *ConfigError.
func Validate(cfg *Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return err
	}

	if err := validateDatabase(&cfg.Database); err != nil {
		return err
	}
	if err := validateBuilder(&cfg.Builder, &cfg.Database); err != nil {
		return err
	}
	return validateObservability(&cfg.Observability)
}

func validateObservability(cfg *observability.Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return NewValidationError("observability", err.Error())
	}
	return nil
}

func fieldError(fe validator.FieldError) *ConfigError {
	path := fe.Namespace()
	if _, rest, found := strings.Cut(path, "."); found {
		path = rest
	}

	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(path)
	case "oneof":
		return NewInvalidFieldError(path, fmt.Sprintf("invalid value %q", fmt.Sprint(fe.Value())), strings.Fields(fe.Param()))
	case "min":
		return NewValidationError(path, fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value()))
	case "max":
		return NewValidationError(path, fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value()))
	case "alphanum":
		return NewValidationError(path, fmt.Sprintf("must only contain letters and digits, got %q", fe.Value()))
	default:
		return NewValidationError(path, fmt.Sprintf("failed %q validation", fe.Tag()))
	}
}

func validateDatabase(cfg *DatabaseConfig) error {
	if cfg.ConnectionString == "" {
		switch cfg.Type {
		case SQLite:
			if cfg.Database == "" {
				return NewMissingFieldError("database.database")
			}
		case MySQL, PostgreSQL:
			required := []struct{ field, value string }{
				{"database.host", cfg.Host},
				{"database.database", cfg.Database},
				{"database.username", cfg.Username},
			}
			for _, r := range required {
				if r.value == "" {
					return NewMissingFieldError(r.field)
				}
			}
		}
	}

	if cfg.Pool.Max.Connections > 0 && cfg.Pool.Idle.Connections > cfg.Pool.Max.Connections {
		return NewValidationError("database.pool.idle.connections",
			fmt.Sprintf("%d idle connections exceed the maximum of %d", cfg.Pool.Idle.Connections, cfg.Pool.Max.Connections))
	}

	return applyQueryDefaults(&cfg.Query)
}

// applyQueryDefaults replaces zero tracking values with defaults and rejects negative ones.
func applyQueryDefaults(cfg *QueryConfig) error {
	if cfg.Log.MaxLength < 0 {
		return NewValidationError("database.query.log.max", "must be zero or positive")
	}
	if cfg.Log.MaxLength == 0 {
		cfg.Log.MaxLength = defaultMaxQueryLength
	}

	if cfg.Slow.Threshold < 0 {
		return NewValidationError("database.query.slow.threshold", "must be zero or positive")
	}
	if cfg.Slow.Threshold == 0 {
		cfg.Slow.Threshold = defaultSlowQueryThreshold
	}
	return nil
}

func validateBuilder(cfg *BuilderConfig, db *DatabaseConfig) error {
	if cfg.Backticks && db.Type == PostgreSQL {
		return NewValidationError("builder.backticks", "backtick quoting is not valid for postgresql")
	}
	if strings.Contains(cfg.Table, "[sub]") {
		return NewValidationError("builder.table", "the default table cannot be a subquery")
	}
	return nil
}
