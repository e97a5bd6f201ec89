package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/qdb/config"
	"github.com/gaborage/qdb/database/types"
	"github.com/gaborage/qdb/logger"
)

func TestValidateDatabaseType(t *testing.T) {
	for _, vendor := range GetSupportedDatabaseTypes() {
		assert.NoError(t, ValidateDatabaseType(vendor))
	}
	err := ValidateDatabaseType("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type: oracle")

	vendors := GetSupportedDatabaseTypes()
	vendors[0] = "changed"
	assert.Equal(t, MySQL, GetSupportedDatabaseTypes()[0])
}

func TestNewConnectionRejectsBadConfig(t *testing.T) {
	log := logger.New("disabled", false)

	_, err := NewConnection(nil, log)
	assert.Error(t, err)

	_, err = NewConnection(&config.DatabaseConfig{Type: "mongodb"}, log)
	assert.ErrorContains(t, err, "unsupported database type")
}

// TestSQLiteEndToEnd drives the builder against a tracked in-memory SQLite connector.
func TestSQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	conn, err := NewConnection(&config.DatabaseConfig{Type: SQLite}, logger.New("disabled", false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Release() })

	_, ok := conn.(*TrackedConnection)
	require.True(t, ok)

	_, err = conn.Exec(ctx, "CREATE TABLE app_users (id INTEGER PRIMARY KEY, name TEXT, password TEXT, age INTEGER)")
	require.NoError(t, err)

	b := NewExtended(conn, WithTablePrefix("app"))
	for _, u := range []map[string]any{
		{"name": "Ada", "password": "x", "age": 36},
		{"name": "O'Brien", "password": "y", "age": 17},
	} {
		res, err := b.Table("users").ValuesMap(u).Insert(ctx)
		require.NoError(t, err)
		n, err := res.Exec.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	}

	res, err := b.Table("users").ColumnsExcept(ctx, "password").Where("age", ">= 18").Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT id, name, age", "FROM app_users", "WHERE age >= 18"}, res.Lines)

	var (
		names []string
		id    int
		name  string
		age   int
	)
	for res.Rows.Next() {
		require.NoError(t, res.Rows.Scan(&id, &name, &age))
		names = append(names, name)
	}
	require.NoError(t, res.Rows.Err())
	require.NoError(t, res.Rows.Close())
	assert.Equal(t, []string{"Ada"}, names)

	res, err = b.Table("users").Values(P("age", 18)).Where("name", "O'Brien").Update(ctx)
	require.NoError(t, err)
	n, err := res.Exec.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	res, err = b.Table("users").Where("age", "< 20").Delete(ctx)
	require.NoError(t, err)
	n, err = res.Exec.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = b.Table("missing").ColumnsExcept(ctx, "id").Select(ctx)
	assert.ErrorIs(t, err, types.ErrUnknownTable)
	assert.ErrorIs(t, err, types.ErrQueryFailed)
}
