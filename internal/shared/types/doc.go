// Package types provides the data structures shared between the engine and
// its collaborators.
//
// Core Types:
//   - Config: per-test configuration, merged from defaults, project, class and method
//   - ConfigTarget: the layers a ConfigResolver merges for one test method
//   - Manifest: the application under test (package, versions, resources)
//
// Errors:
//   - ErrConfiguration, ErrResolution, ErrExecution, ErrTeardown classify
//     failures; Wrap attaches a kind and KindOf reads it back
package types
