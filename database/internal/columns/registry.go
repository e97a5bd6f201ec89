package columns

import (
	"context"
	"reflect"
)

// Loader fetches the physical column names of a table.
type Loader func(ctx context.Context, table string) ([]string, error)

// Registry caches column names per table and tagged fields per struct type.
// Entries are filled on first use and never invalidated; create a new
// Registry when the schema changes. A Registry is owned by one builder and
// is not safe for concurrent use.
type Registry struct {
	tables  map[string][]string
	structs map[reflect.Type]*Struct
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tables:  make(map[string][]string),
		structs: make(map[reflect.Type]*Struct),
	}
}

// Table returns the cached columns of table, calling load on the first request.
// Failed loads are not cached.
func (r *Registry) Table(ctx context.Context, table string, load Loader) ([]string, error) {
	if cols, ok := r.tables[table]; ok {
		return cols, nil
	}
	cols, err := load(ctx, table)
	if err != nil {
		return nil, err
	}
	r.tables[table] = cols
	return cols, nil
}

// Struct returns the tagged fields for the type of v, parsing it on first use.
func (r *Registry) Struct(v any) (*Struct, error) {
	t := reflect.TypeOf(v)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return nil, errNilStruct
	}
	if s, ok := r.structs[t]; ok {
		return s, nil
	}
	s, err := parseStruct(t)
	if err != nil {
		return nil, err
	}
	r.structs[t] = s
	return s, nil
}

// CachedTables reports how many tables have been loaded.
func (r *Registry) CachedTables() int {
	return len(r.tables)
}
