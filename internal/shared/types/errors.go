package types

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error surfaced by the engine wraps exactly one of these.
var (
	// ErrConfiguration is fatal and never retried: ambiguous shadows,
	// malformed selection input, unsupported versions.
	ErrConfiguration = errors.New("configuration error")

	// ErrResolution covers artifact and manifest lookup failures.
	ErrResolution = errors.New("resolution error")

	// ErrExecution is raised by the test body itself.
	ErrExecution = errors.New("execution failure")

	// ErrTeardown covers application teardown and static-state reset failures.
	ErrTeardown = errors.New("teardown failure")
)

// Wrap tags err with a failure kind, keeping both reachable through errors.Is.
// Errors that already carry kind are returned unchanged.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// KindOf returns the failure kind carried by err, or nil
func KindOf(err error) error {
	for _, kind := range []error{ErrConfiguration, ErrResolution, ErrExecution, ErrTeardown} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindOr returns err unchanged when it already carries a failure kind and
// tags it with fallback otherwise
func KindOr(err, fallback error) error {
	if err == nil || KindOf(err) != nil {
		return err
	}
	return Wrap(fallback, err)
}
