package database

import "github.com/gaborage/qdb/database/types"

// Vendor identifiers, re-exported from types.
const (
	MySQL      = types.MySQL
	SQLite     = types.SQLite
	PostgreSQL = types.PostgreSQL
)
