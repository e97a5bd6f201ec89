package testing

import (
	"database/sql"
	"database/sql/driver"
	"fmt"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/gaborage/qdb/database/internal/columns"
)

// rowSetQuery is the statement sent to the sqlmock database that serves a RowSet.
const rowSetQuery = "SELECT rowset"

// RowSet is the result set a TestConnector answers a matching Query with.
//
//	rows := NewRowSet("id", "name").
//	    AddRow(1, "Alice").
//	    AddRow(2, "Bob")
//
//	conn.ExpectQuery("FROM `users`").WillReturnRows(rows)
type RowSet struct {
	columns []string
	rows    [][]driver.Value
}

// NewRowSet creates an empty RowSet with the given column names.
func NewRowSet(columns ...string) *RowSet {
	return &RowSet{columns: columns}
}

// AddRow appends one row. Values go through the database/sql default
// conversion, so an int arrives as int64 and pointers are dereferenced.
// It panics when the value count does not match the columns or a value
// cannot be converted.
func (rs *RowSet) AddRow(values ...any) *RowSet {
	if len(values) != len(rs.columns) {
		panic(fmt.Sprintf("AddRow: expected %d values for columns %v, got %d",
			len(rs.columns), rs.columns, len(values)))
	}
	row := make([]driver.Value, len(values))
	for i, v := range values {
		dv, err := driver.DefaultParameterConverter.ConvertValue(v)
		if err != nil {
			panic(fmt.Sprintf("AddRow: column %q: %v", rs.columns[i], err))
		}
		row[i] = dv
	}
	rs.rows = append(rs.rows, row)
	return rs
}

// AddRowsFromStructs appends one row per struct, reading fields by their
// `db:"column"` tags in RowSet column order. Every column must be tagged.
func (rs *RowSet) AddRowsFromStructs(structs ...any) *RowSet {
	reg := columns.NewRegistry()
	for _, s := range structs {
		st, err := reg.Struct(s)
		if err != nil {
			panic(fmt.Sprintf("AddRowsFromStructs: %v", err))
		}
		pairs, err := st.Pairs(s)
		if err != nil {
			panic(fmt.Sprintf("AddRowsFromStructs: %v", err))
		}

		byColumn := make(map[string]any, len(pairs))
		for _, p := range pairs {
			byColumn[p.Column] = p.Value
		}
		values := make([]any, len(rs.columns))
		for i, col := range rs.columns {
			v, ok := byColumn[col]
			if !ok {
				panic(fmt.Sprintf("AddRowsFromStructs: column %q not found in struct %T (check db tags)", col, s))
			}
			values[i] = v
		}
		rs.AddRow(values...)
	}
	return rs
}

// RowCount returns the number of rows.
func (rs *RowSet) RowCount() int {
	return len(rs.rows)
}

// Columns returns a copy of the column names.
func (rs *RowSet) Columns() []string {
	return append([]string{}, rs.columns...)
}

// toSQLRows serves the RowSet from a one-shot sqlmock database. The database
// is closed right away; its connection closes when the rows do.
func (rs *RowSet) toSQLRows() (*sql.Rows, error) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		return nil, fmt.Errorf("failed to create row set database: %w", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(rs.columns)
	for _, row := range rs.rows {
		rows.AddRow(row...)
	}
	mock.ExpectQuery(rowSetQuery).WillReturnRows(rows)
	mock.ExpectClose()

	return db.Query(rowSetQuery)
}
