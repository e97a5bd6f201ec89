package sqlconn

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/qdb/config"
	"github.com/gaborage/qdb/database/types"
	"github.com/gaborage/qdb/logger"
)

func columnQuery(table string) sq.SelectBuilder {
	return sq.Select("name").From("columns").Where(sq.Eq{"tbl": table}).OrderBy("pos")
}

func TestConnBasics(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	c := New(db, logger.New("disabled", false), types.MySQL)
	ctx := context.Background()

	mock.ExpectPing()
	require.NoError(t, c.Health(ctx))

	mock.ExpectQuery("SELECT id FROM users").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	rows, err := c.Query(ctx, "SELECT id FROM users")
	require.NoError(t, err)
	assert.True(t, rows.Next())
	require.NoError(t, rows.Close())

	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 4))
	res, err := c.Exec(ctx, "DELETE FROM users")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	assert.Equal(t, types.MySQL, c.DatabaseType())
	assert.Same(t, db, c.DB())
	assert.GreaterOrEqual(t, c.Stats().OpenConnections, 0)

	mock.ExpectClose()
	require.NoError(t, c.Release())
	require.NoError(t, c.Release())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := New(db, logger.New("disabled", false), types.SQLite)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT name FROM columns WHERE tbl = \? ORDER BY pos`).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("id").AddRow("name").AddRow("email"))
	cols, err := c.ScanColumns(ctx, "users", columnQuery("users"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "email"}, cols)

	mock.ExpectQuery("SELECT name FROM columns").
		WithArgs("ghosts").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	_, err = c.ScanColumns(ctx, "ghosts", columnQuery("ghosts"))
	assert.ErrorIs(t, err, types.ErrUnknownTable)

	mock.ExpectQuery("SELECT name FROM columns").
		WithArgs("users").
		WillReturnError(errors.New("connection reset"))
	_, err = c.ScanColumns(ctx, "users", columnQuery("users"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrUnknownTable)
	assert.Contains(t, err.Error(), "connection reset")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen(t *testing.T) {
	cfg := &config.DatabaseConfig{}
	cfg.Pool.Max.Connections = 7
	cfg.Pool.Idle.Connections = 2
	cfg.Pool.Idle.Time = time.Minute
	cfg.Pool.Lifetime.Max = time.Hour
	log := logger.New("disabled", false)

	t.Run("configures pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		c, err := Open(db, cfg, log, types.PostgreSQL)
		require.NoError(t, err)
		assert.Equal(t, 7, c.Stats().MaxOpenConnections)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ping failure closes db", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)

		mock.ExpectPing().WillReturnError(errors.New("refused"))
		mock.ExpectClose()
		_, err = Open(db, cfg, log, types.PostgreSQL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ping postgresql database")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSplitTable(t *testing.T) {
	tests := []struct {
		in, schema, name string
	}{
		{"users", "", "users"},
		{"shop.users", "shop", "users"},
		{"`shop`.`users`", "shop", "users"},
		{`"public"."orders"`, "public", "orders"},
		{" users ", "", "users"},
	}
	for _, tt := range tests {
		schema, name := SplitTable(tt.in)
		assert.Equal(t, tt.schema, schema, tt.in)
		assert.Equal(t, tt.name, name, tt.in)
	}
}
