package resources

import (
	"maps"
	"slices"
)

// View resolves keys against stacked tables, first table first
type View struct {
	layers []*Table
}

// NewView stacks tables in priority order. Nil tables are skipped.
func NewView(layers ...*Table) *View {
	v := &View{}
	for _, t := range layers {
		if t != nil {
			v.layers = append(v.layers, t)
		}
	}
	return v
}

// Get returns the highest-priority value for key
func (v *View) Get(key string) (any, bool) {
	val, _, ok := v.Lookup(key)
	return val, ok
}

// Lookup returns the value and the name of the table that supplied it
func (v *View) Lookup(key string) (any, string, bool) {
	if v == nil {
		return nil, "", false
	}
	for _, t := range v.layers {
		if val, ok := t.Get(key); ok {
			return val, t.Name(), true
		}
	}
	return nil, "", false
}

// String returns a string value, or "" when missing or not a string
func (v *View) String(key string) string {
	val, ok := v.Get(key)
	if !ok {
		return ""
	}
	s, _ := val.(string)
	return s
}

// Keys returns the union of keys in sorted order
func (v *View) Keys() []string {
	if v == nil {
		return nil
	}
	set := map[string]struct{}{}
	for _, t := range v.layers {
		for _, k := range t.Keys() {
			set[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Layers returns the table names in priority order
func (v *View) Layers() []string {
	if v == nil {
		return nil
	}
	names := make([]string, 0, len(v.layers))
	for _, t := range v.layers {
		names = append(names, t.Name())
	}
	return names
}

// Views are what a test sees: application resources layered over the
// framework, and the framework's own system resources
type Views struct {
	Application *View
	System      *View
}

// Build stacks app over framework over compile-time defaults
func Build(app, framework *Table) Views {
	defaults := CompileTimeDefaults()
	return Views{
		Application: NewView(app, framework, defaults),
		System:      NewView(framework, defaults),
	}
}
