// Package intercept decides which framework symbols are redirected to shadows.
//
// A symbol is identified structurally by class name and member signature. A
// ShadowDescriptor binds a symbol to a replacement implementation for an
// inclusive range of platform versions. Descriptors are collected into an
// immutable Table which answers "which shadow, if any, handles this symbol at
// this version?".
//
// Components:
//   - SymbolID: structural identity of a framework member
//   - Range: inclusive [Min, Max] version applicability
//   - Table: immutable, validated descriptor set with Resolve and Layer
//   - Registry: named shadow groups a test can select by name
//   - Config: which classes get instrumented at all (cache key component)
//
// Tables are data. Building a table with two descriptors for the same symbol
// whose ranges overlap fails with a configuration error, so Resolve never
// sees an ambiguous match at call time.
//
// Example Usage:
//
//	table, err := intercept.NewTable(
//	    intercept.ShadowDescriptor{Target: radio, Shadow: "ShadowBuild", Range: intercept.Between(21, 22), Impl: legacy},
//	    intercept.ShadowDescriptor{Target: radio, Shadow: "ShadowBuild", Range: intercept.Between(23, 25), Impl: modern},
//	)
//	desc, ok := table.Resolve(radio, 23) // modern
//	_, ok = table.Resolve(radio, 26)     // pass-through
package intercept
