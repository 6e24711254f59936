// Package dispatch routes framework calls to shadows for one environment.
//
// A Runtime is owned by exactly one isolated environment and is handed to it
// at construction. Nothing else can reach it: there is no process-wide hook.
package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/shadowbox/internal/domain/intercept"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shadowbox/internal/shared/id"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// ErrNoImplementation means a symbol has neither a shadow nor framework code
var ErrNoImplementation = errors.New("no implementation")

// Dispatch outcomes
const (
	OutcomeShadowed = "shadowed"
	OutcomeOriginal = "original"
	OutcomeMissing  = "missing"
)

// Call is one framework call arriving at the runtime
type Call struct {
	Symbol intercept.SymbolID
	This   any
	Args   []any
	Caller id.ThreadID
}

// Stats counts dispatch outcomes since the last reset
type Stats struct {
	Shadowed int64
	Original int64
	Missing  int64
}

// Total returns the number of dispatched calls
func (s Stats) Total() int64 {
	return s.Shadowed + s.Original + s.Missing
}

// Runtime holds the active table for one environment
type Runtime struct {
	version platform.Version
	table   atomic.Pointer[intercept.Table]
	state   *intercept.ShadowState

	mu         sync.RWMutex
	mainThread id.ThreadID

	shadowed atomic.Int64
	original atomic.Int64
	missing  atomic.Int64

	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// Option configures a Runtime
type Option func(*Runtime)

// WithMetrics records dispatch outcomes
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Runtime) { r.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// New creates a runtime for version with an empty table installed
func New(version platform.Version, opts ...Option) *Runtime {
	r := &Runtime{
		version: version,
		state:   intercept.NewShadowState(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	r.table.Store(intercept.Empty())
	return r
}

// Version returns the platform version the runtime dispatches for
func (r *Runtime) Version() platform.Version {
	return r.version
}

// Install validates table and makes it active. Nil installs the empty table.
func (r *Runtime) Install(table *intercept.Table) error {
	if table == nil {
		table = intercept.Empty()
	}
	if err := table.Validate(); err != nil {
		return fmt.Errorf("install table for version %s: %w", r.version, err)
	}
	r.table.Store(table)
	r.logger.Debug("Table installed",
		zap.Stringer("version", r.version),
		zap.Int("descriptors", table.Len()))
	return nil
}

// Table returns the active table
func (r *Runtime) Table() *intercept.Table {
	return r.table.Load()
}

// State returns the per-environment shadow scratch state
func (r *Runtime) State() *intercept.ShadowState {
	return r.state
}

// SetMainThread records the privileged thread and returns the previous one
func (r *Runtime) SetMainThread(tid id.ThreadID) id.ThreadID {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.mainThread
	r.mainThread = tid
	return prev
}

// MainThread returns the privileged thread
func (r *Runtime) MainThread() id.ThreadID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mainThread
}

// Resolve looks up the shadow for sym in the active table
func (r *Runtime) Resolve(sym intercept.SymbolID) (intercept.ShadowDescriptor, bool) {
	return r.table.Load().Resolve(sym, r.version)
}

// Dispatch runs the shadow resolved for call, or original when there is none
func (r *Runtime) Dispatch(call Call, original intercept.Original) (any, error) {
	desc, ok := r.Resolve(call.Symbol)
	if !ok {
		if original == nil {
			r.count(&r.missing, OutcomeMissing)
			return nil, fmt.Errorf("%s at version %s: %w", call.Symbol, r.version, ErrNoImplementation)
		}
		r.count(&r.original, OutcomeOriginal)
		return original(call.This, call.Args)
	}

	r.count(&r.shadowed, OutcomeShadowed)

	inv := intercept.NewInvocation(call.Symbol, r.version, call.This, call.Args, original)
	inv.Caller = call.Caller
	inv.MainThread = r.MainThread()
	inv.State = r.state
	return desc.Impl(inv)
}

// Stats returns outcome counters
func (r *Runtime) Stats() Stats {
	return Stats{
		Shadowed: r.shadowed.Load(),
		Original: r.original.Load(),
		Missing:  r.missing.Load(),
	}
}

// ResetStats zeroes outcome counters
func (r *Runtime) ResetStats() {
	r.shadowed.Store(0)
	r.original.Store(0)
	r.missing.Store(0)
}

func (r *Runtime) count(c *atomic.Int64, outcome string) {
	c.Add(1)
	r.metrics.RecordDispatch(r.version.String(), outcome)
}
