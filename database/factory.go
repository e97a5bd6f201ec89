package database

import (
	"fmt"
	"slices"

	"github.com/gaborage/qdb/config"
	"github.com/gaborage/qdb/database/mysql"
	"github.com/gaborage/qdb/database/postgresql"
	"github.com/gaborage/qdb/database/sqlite"
	"github.com/gaborage/qdb/database/types"
	"github.com/gaborage/qdb/logger"
)

var supportedTypes = []string{MySQL, SQLite, PostgreSQL}

// NewConnection opens the connector selected by cfg.Type and wraps it with
// statement tracking.
func NewConnection(cfg *config.DatabaseConfig, log logger.Logger) (types.Connector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is nil")
	}
	if err := ValidateDatabaseType(cfg.Type); err != nil {
		return nil, err
	}

	var (
		conn types.Connector
		err  error
	)
	switch cfg.Type {
	case MySQL:
		conn, err = mysql.NewConnection(cfg, log)
	case SQLite:
		conn, err = sqlite.NewConnection(cfg, log)
	case PostgreSQL:
		conn, err = postgresql.NewConnection(cfg, log)
	}
	if err != nil {
		return nil, err
	}

	return NewTrackedConnection(conn, log, cfg), nil
}

// ValidateDatabaseType returns nil if dbType is one of the supported database types.
func ValidateDatabaseType(dbType string) error {
	if !slices.Contains(supportedTypes, dbType) {
		return fmt.Errorf("unsupported database type: %s (supported: %v)", dbType, supportedTypes)
	}
	return nil
}

// GetSupportedDatabaseTypes returns a list of supported database types
func GetSupportedDatabaseTypes() []string {
	return slices.Clone(supportedTypes)
}
