//revive:disable-next-line:var-naming // Package name "types" avoids circular imports.
package types

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyTableName is returned when a table spec has no name.
	ErrEmptyTableName = errors.New("table name cannot be empty")

	// ErrBadTableSpec is returned for table specs that are not "name", "name alias" or "name AS alias".
	ErrBadTableSpec = errors.New("table spec must be \"name\", \"name alias\" or \"name AS alias\"")
)

// TableRef is a parsed table spec as accepted by the builder's Table and Join.
//
// Example:
//
//	ParseTable("customers c")        // name customers, alias c
//	ParseTable("customers AS c")     // same
//	ParseTable("[sub] AS recent")    // a subquery aliased recent
type TableRef struct {
	name  string
	alias string
	sub   bool
}

// ParseTable splits a table spec into name and alias. The AS keyword is
// matched case-insensitively and the name SubToken marks a subquery.
func ParseTable(spec string) (TableRef, error) {
	words := strings.Fields(spec)
	switch len(words) {
	case 0:
		return TableRef{}, ErrEmptyTableName
	case 1:
		return newTableRef(words[0], ""), nil
	case 2:
		if strings.EqualFold(words[1], "AS") {
			return TableRef{}, ErrBadTableSpec
		}
		return newTableRef(words[0], words[1]), nil
	case 3:
		if !strings.EqualFold(words[1], "AS") {
			return TableRef{}, ErrBadTableSpec
		}
		return newTableRef(words[0], words[2]), nil
	default:
		return TableRef{}, ErrBadTableSpec
	}
}

func newTableRef(name, alias string) TableRef {
	return TableRef{name: name, alias: alias, sub: name == SubToken}
}

// Name returns the table name, unquoted and without prefix.
func (t TableRef) Name() string {
	return t.name
}

// Alias returns the table alias, or empty string if no alias.
func (t TableRef) Alias() string {
	return t.alias
}

// HasAlias returns true if this table has an alias.
func (t TableRef) HasAlias() bool {
	return t.alias != ""
}

// IsSub reports whether the spec stands for a subquery.
func (t TableRef) IsSub() bool {
	return t.sub
}

// WithAlias returns a copy of t using alias.
func (t TableRef) WithAlias(alias string) TableRef {
	t.alias = alias
	return t
}

// WithName returns a copy of t naming table name.
func (t TableRef) WithName(name string) TableRef {
	t.name = name
	t.sub = name == SubToken
	return t
}
