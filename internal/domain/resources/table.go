// Package resources builds the layered resource views a test reads.
//
// Three tables are stacked with a fixed priority: application resources
// override framework resources, which override compile-time defaults. Keys
// are "type/name", e.g. "string/app_name".
package resources

import (
	"maps"
	"slices"
)

// Layer names, highest priority first
const (
	LayerApplication = "application"
	LayerFramework   = "framework"
	LayerCompileTime = "compile-time"
)

// Table is an immutable set of resource values
type Table struct {
	name   string
	values map[string]any
}

// NewTable copies values into a new table
func NewTable(name string, values map[string]any) *Table {
	return &Table{name: name, values: maps.Clone(values)}
}

// EmptyTable returns a table with no values
func EmptyTable(name string) *Table {
	return &Table{name: name, values: map[string]any{}}
}

// Name returns the table name
func (t *Table) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Get returns a value by key
func (t *Table) Get(key string) (any, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.values[key]
	return v, ok
}

// Keys returns every key in sorted order
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.values))
}

// Len returns the number of values
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.values)
}

// CompileTimeDefaults are values every view falls back to
func CompileTimeDefaults() *Table {
	return NewTable(LayerCompileTime, map[string]any{
		"string/ok":                     "OK",
		"string/cancel":                 "Cancel",
		"string/yes":                    "Yes",
		"string/no":                     "No",
		"bool/config_showNavigationBar": true,
		"integer/config_shortAnimTime":  200,
		"integer/config_mediumAnimTime": 400,
		"integer/config_longAnimTime":   500,
	})
}
