package sandbox

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/GriffinCanCode/shadowbox/internal/domain/dispatch"
)

// Reset steps, in the order they run
const (
	StepClassStatics    = "class-statics"
	StepVersionIdentity = "version-identity"
	StepShadowState     = "shadow-state"
	StepDispatchStats   = "dispatch-stats"
	StepApplication     = "application"
)

// Version identity fields written into the version class
const (
	FieldSDKInt  = "SDK_INT"
	FieldRelease = "RELEASE"
)

type resetStep struct {
	name  string
	reset func(e *Environment) error
}

var checklist = []resetStep{
	{StepClassStatics, resetClassStatics},
	{StepVersionIdentity, resetVersionIdentity},
	{StepShadowState, func(e *Environment) error { e.runtime.State().Reset(); return nil }},
	{StepDispatchStats, func(e *Environment) error { e.runtime.ResetStats(); return nil }},
	{StepApplication, func(e *Environment) error { e.SetApplication(nil); return nil }},
}

// Checklist names everything a static-state reset restores.
// Main-thread identity is not on it; the run that set it restores it.
func Checklist() []string {
	names := make([]string, len(checklist))
	for i, s := range checklist {
		names[i] = s.name
	}
	return names
}

// ResetStaticState runs every checklist step. A failing step does not stop
// the ones after it; all failures are returned joined.
func (e *Environment) ResetStaticState() error {
	e.vmMu.Lock()
	defer e.vmMu.Unlock()

	if e.closed {
		return ErrClosed
	}

	var errs []error
	for _, step := range checklist {
		if err := runStep(e, step); err != nil {
			errs = append(errs, fmt.Errorf("reset %s: %w", step.name, err))
		}
	}
	return errors.Join(errs...)
}

func runStep(e *Environment, step resetStep) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return step.reset(e)
}

func resetClassStatics(e *Environment) error {
	for _, c := range e.classes {
		restoreInto(c.live, c.baseline)
	}
	return nil
}

// resetVersionIdentity writes the version fields, creating the version
// class when the bundle does not define it
func resetVersionIdentity(e *Environment) error {
	c, ok := e.classes[e.versionClass]
	if !ok {
		c = e.newClass(e.versionClass)
		e.classes[e.versionClass] = c
	}
	c.live[FieldSDKInt] = int64(e.release.Version)
	c.live[FieldRelease] = e.release.Name
	return nil
}

// Snapshot is the observable state covered by the reset checklist
type Snapshot struct {
	Statics        map[string]map[string]any
	ShadowState    []string
	Stats          dispatch.Stats
	HasApplication bool
}

// Snapshot captures the checklist state
func (e *Environment) Snapshot() Snapshot {
	e.vmMu.Lock()
	defer e.vmMu.Unlock()

	statics := make(map[string]map[string]any, len(e.classes))
	for _, name := range slices.Sorted(maps.Keys(e.classes)) {
		statics[name] = cloneMap(e.classes[name].live)
	}
	return Snapshot{
		Statics:        statics,
		ShadowState:    e.runtime.State().Keys(),
		Stats:          e.runtime.Stats(),
		HasApplication: e.Application() != nil,
	}
}

// restoreInto replaces the contents of live with a copy of baseline in place,
// so references held by framework code stay valid
func restoreInto(live, baseline map[string]any) {
	clear(live)
	for k, v := range baseline {
		live[k] = cloneValue(v)
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
