// Package mocks provides testify mocks of the qdb interfaces.
package mocks

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/qdb/database/types"
)

// MockConnector is a testify mock of types.Connector.
//
// Example usage:
//
//	conn := &mocks.MockConnector{}
//	conn.ExpectEscape()
//	conn.On("Exec", mock.Anything, mock.MatchedBy(func(q string) bool {
//	    return strings.HasPrefix(q, "INSERT INTO users")
//	})).Return(sqlmock.NewResult(1, 1), nil)
//	conn.On("Release").Return(nil).Maybe()
//
//	_, err := database.NewBasic(conn).Table("users").Values(database.P("name", "Ada")).Insert(ctx)
type MockConnector struct {
	mock.Mock
}

var _ types.Connector = (*MockConnector)(nil)

func (m *MockConnector) Query(ctx context.Context, query string) (*sql.Rows, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sql.Rows), args.Error(1)
}

func (m *MockConnector) Exec(ctx context.Context, query string) (sql.Result, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(sql.Result), args.Error(1)
}

// Escape returns the configured string, or applies a func(string) string return value to raw.
func (m *MockConnector) Escape(raw string) string {
	args := m.Called(raw)
	if fn, ok := args.Get(0).(func(string) string); ok {
		return fn(raw)
	}
	return args.String(0)
}

func (m *MockConnector) ListColumns(ctx context.Context, table string) ([]string, error) {
	args := m.Called(ctx, table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockConnector) Release() error {
	return m.Called().Error(0)
}

func (m *MockConnector) DatabaseType() string {
	return m.Called().String(0)
}

// ExpectEscape makes Escape return its input unchanged, any number of times.
func (m *MockConnector) ExpectEscape() *mock.Call {
	return m.On("Escape", mock.Anything).Return(func(raw string) string { return raw }).Maybe()
}

// ExpectColumns sets up ListColumns for table.
func (m *MockConnector) ExpectColumns(table string, columns ...string) *mock.Call {
	return m.On("ListColumns", mock.Anything, table).Return(columns, nil)
}
