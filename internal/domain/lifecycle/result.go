package lifecycle

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// Stage names a step of a run
type Stage string

const (
	StageSelect   Stage = "select"
	StageAcquire  Stage = "acquire"
	StagePrime    Stage = "prime"
	StageExecute  Stage = "execute"
	StageTeardown Stage = "teardown"
	StageRelease  Stage = "release"
)

// Stages lists the per-unit stages in execution order
func Stages() []Stage {
	return []Stage{StageAcquire, StagePrime, StageExecute, StageTeardown, StageRelease}
}

// StageError records where a run failed
type StageError struct {
	Stage   Stage
	Version platform.Version
	Unit    string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s (version %s) failed at %s: %v", e.Unit, e.Version, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageTiming is one executed stage
type StageTiming struct {
	Stage    Stage
	Duration time.Duration
	Err      error
}

// Result is the single outcome of a unit
type Result struct {
	Unit    *Unit
	Name    string
	Version platform.Version
	Passed  bool
	Skipped bool

	// Stage is the first stage that failed
	Stage    Stage
	Err      error
	Duration time.Duration
	Stages   []StageTiming
}

// Ran reports whether stage executed
func (r Result) Ran(stage Stage) bool {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return true
		}
	}
	return false
}
