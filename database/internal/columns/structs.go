package columns

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gaborage/qdb/database/types"
)

var errNilStruct = errors.New("expected a struct or pointer to struct, got nil")

// Field maps one exported struct field to its column.
type Field struct {
	// Name is the Go field name (e.g., "UserID")
	Name string

	// Column is the raw column name from the db tag (e.g., "user_id")
	Column string

	// Index is the field's index within the struct
	Index int
}

// Struct holds the db-tagged fields of one struct type in declaration order.
type Struct struct {
	TypeName string
	Fields   []Field
}

// Names returns the column names in declaration order.
func (s *Struct) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Column
	}
	return names
}

// Pairs reads the tagged fields of v into column/value pairs.
// v must be a struct or a pointer to a struct of the parsed type.
func (s *Struct) Pairs(v any) ([]types.Pair, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot read columns from nil %T", v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.Type().Name() != s.TypeName {
		return nil, fmt.Errorf("expected struct %s, got %T", s.TypeName, v)
	}

	pairs := make([]types.Pair, len(s.Fields))
	for i, f := range s.Fields {
		pairs[i] = types.P(f.Column, rv.Field(f.Index).Interface())
	}
	return pairs, nil
}

// parseStruct extracts the `db:"column"` fields of a struct type.
//
// Returns an error if:
//   - t is not a struct type
//   - a db tag is not a plain identifier
//   - no field carries a db tag
func parseStruct(t reflect.Type) (*Struct, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected a struct or pointer to struct, got %s", t.Kind())
	}

	s := &Struct{
		TypeName: t.Name(),
		Fields:   make([]Field, 0, t.NumField()),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("db")
		if name, _, found := strings.Cut(tag, ","); found {
			tag = name
		}
		if tag == "" || tag == "-" {
			continue
		}

		if err := validateTag(tag, t.Name(), field.Name); err != nil {
			return nil, err
		}

		s.Fields = append(s.Fields, Field{Name: field.Name, Column: tag, Index: i})
	}

	if len(s.Fields) == 0 {
		return nil, fmt.Errorf("no fields with `db` tags found in struct %s", t.Name())
	}
	return s, nil
}

// validateTag rejects db tags that are not plain column identifiers.
func validateTag(tag, structName, fieldName string) error {
	for _, c := range tag {
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return fmt.Errorf("invalid db tag %q in field %s.%s: unexpected character %q", tag, structName, fieldName, c)
		}
	}
	return nil
}
