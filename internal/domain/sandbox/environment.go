package sandbox

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/shadowbox/internal/domain/dispatch"
	"github.com/GriffinCanCode/shadowbox/internal/domain/intercept"
	"github.com/GriffinCanCode/shadowbox/internal/domain/resources"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/shared/id"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// DefaultVersionClass receives SDK_INT and RELEASE on every reset
const DefaultVersionClass = "android.os.Build$VERSION"

// ErrClosed is returned by calls into an evicted environment
var ErrClosed = errors.New("environment closed")

// class is one framework class loaded into the VM
type class struct {
	name         string
	baseline     map[string]any
	live         map[string]any
	statics      goja.Value // JS view over live
	methods      map[string]goja.Callable
	instrumented bool
}

// Environment is one isolated instantiation of the framework
type Environment struct {
	id           id.EnvID
	release      platform.Release
	artifact     platform.Artifact
	config       intercept.Config
	runtime      *dispatch.Runtime
	base         *intercept.Table
	versionClass string
	programs     *Programs
	logger       *logging.Logger

	// held by one run from Own to Disown
	owner sync.Mutex

	vmMu    sync.Mutex
	vm      *goja.Runtime
	classes map[string]*class
	system  map[string]any
	caller  id.ThreadID
	sealed  bool
	closed  bool

	appMu sync.RWMutex
	app   *Application
}

// Option configures an Environment
type Option func(*Environment)

// WithBaseTable sets the shadows every run starts from
func WithBaseTable(t *intercept.Table) Option {
	return func(e *Environment) { e.base = t }
}

// WithVersionClass overrides the class receiving version identity
func WithVersionClass(name string) Option {
	return func(e *Environment) { e.versionClass = name }
}

// WithPrograms shares compiled bundles between environments
func WithPrograms(p *Programs) Option {
	return func(e *Environment) { e.programs = p }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(e *Environment) { e.logger = l }
}

// New boots the framework bundle at artifact into a fresh VM.
// The dispatch runtime becomes owned by the environment.
func New(ctx context.Context, release platform.Release, artifact platform.Artifact, cfg intercept.Config, rt *dispatch.Runtime, opts ...Option) (*Environment, error) {
	if rt == nil {
		return nil, errors.New("dispatch runtime is required")
	}
	if rt.Version() != release.Version {
		return nil, fmt.Errorf("dispatch runtime is for version %s, release is %s", rt.Version(), release.Version)
	}

	e := &Environment{
		id:           id.NewEnvID(),
		release:      release,
		artifact:     artifact,
		config:       cfg,
		runtime:      rt,
		base:         intercept.Empty(),
		versionClass: DefaultVersionClass,
		classes:      make(map[string]*class),
		system:       make(map[string]any),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNop(e.logger).With(
		zap.String("env", string(e.id)),
		zap.Stringer("version", release.Version))

	prg, err := e.programs.Get(artifact.Path)
	if err != nil {
		return nil, err
	}

	e.vm = goja.New()
	e.vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	e.setupGlobals()

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		e.vm.Interrupt("boot cancelled")
	})
	_, err = e.vm.RunProgram(prg)
	if !stop() {
		// the interrupt must land before it is cleared
		<-interrupted
	}
	e.vm.ClearInterrupt()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("boot %s: %w", artifact.Path, ctxErr)
	}
	if err != nil {
		return nil, fmt.Errorf("boot %s: %w", artifact.Path, unwrapException(err))
	}
	e.sealed = true

	if err := rt.Install(e.base); err != nil {
		return nil, err
	}
	if err := e.ResetStaticState(); err != nil {
		return nil, err
	}

	e.logger.Debug("Environment booted",
		zap.String("artifact", artifact.Path),
		zap.Int("classes", len(e.classes)),
		zap.String("config", cfg.String()))
	return e, nil
}

// ID returns the environment identifier
func (e *Environment) ID() id.EnvID { return e.id }

// Version returns the simulated platform version
func (e *Environment) Version() platform.Version { return e.release.Version }

// Release returns the framework release
func (e *Environment) Release() platform.Release { return e.release }

// Artifact returns the bundle the environment was booted from
func (e *Environment) Artifact() platform.Artifact { return e.artifact }

// Config returns the interception config
func (e *Environment) Config() intercept.Config { return e.config }

// Runtime returns the environment's dispatch runtime
func (e *Environment) Runtime() *dispatch.Runtime { return e.runtime }

// BaseTable returns the shadows every run starts from
func (e *Environment) BaseTable() *intercept.Table { return e.base }

// Install makes table the active table for this environment only
func (e *Environment) Install(table *intercept.Table) error {
	return e.runtime.Install(table)
}

// Own takes exclusive ownership for one run. It blocks while another run owns the environment.
func (e *Environment) Own() {
	e.owner.Lock()
}

// TryOwn takes ownership if the environment is free
func (e *Environment) TryOwn() bool {
	return e.owner.TryLock()
}

// Disown gives up ownership
func (e *Environment) Disown() {
	e.owner.Unlock()
}

// SetMainThread records the privileged thread and returns the previous one
func (e *Environment) SetMainThread(tid id.ThreadID) id.ThreadID {
	return e.runtime.SetMainThread(tid)
}

// MainThread returns the privileged thread
func (e *Environment) MainThread() id.ThreadID {
	return e.runtime.MainThread()
}

// SetApplication records the application of the current run
func (e *Environment) SetApplication(app *Application) {
	e.appMu.Lock()
	defer e.appMu.Unlock()
	e.app = app
}

// Application returns the application of the current run, if any
func (e *Environment) Application() *Application {
	e.appMu.RLock()
	defer e.appMu.RUnlock()
	return e.app
}

// Invoke calls a framework member on behalf of caller.
// Shadows must not call Invoke on their own environment; they use
// Invocation.CallOriginal instead.
func (e *Environment) Invoke(caller id.ThreadID, sym intercept.SymbolID, this any, args ...any) (any, error) {
	e.vmMu.Lock()
	defer e.vmMu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	prev := e.caller
	e.caller = caller
	defer func() { e.caller = prev }()

	out, err := e.call(sym, this, args)
	if err != nil {
		return nil, err
	}
	return exportValue(out), nil
}

// Has reports whether sym can be called: the bundle defines it, or an
// installed shadow answers for it
func (e *Environment) Has(sym intercept.SymbolID) bool {
	e.vmMu.Lock()
	defer e.vmMu.Unlock()

	if c, ok := e.classes[sym.Class]; ok {
		if _, ok := c.methods[sym.Member]; ok {
			return true
		}
	}
	if !e.config.ShouldInstrument(sym.Class) {
		return false
	}
	_, ok := e.runtime.Resolve(sym)
	return ok
}

// Symbols returns every member the bundle defines, sorted
func (e *Environment) Symbols() []intercept.SymbolID {
	e.vmMu.Lock()
	defer e.vmMu.Unlock()

	var out []intercept.SymbolID
	for _, name := range slices.Sorted(maps.Keys(e.classes)) {
		for _, member := range slices.Sorted(maps.Keys(e.classes[name].methods)) {
			out = append(out, intercept.Symbol(name, member))
		}
	}
	return out
}

// Instrumented reports whether calls into class are routed through dispatch
func (e *Environment) Instrumented(class string) bool {
	return e.config.ShouldInstrument(class)
}

// Statics returns a copy of a class's current static values
func (e *Environment) Statics(class string) (map[string]any, bool) {
	e.vmMu.Lock()
	defer e.vmMu.Unlock()

	c, ok := e.classes[class]
	if !ok {
		return nil, false
	}
	return cloneMap(c.live), true
}

// SystemResources returns the resources the bundle declares
func (e *Environment) SystemResources() *resources.Table {
	e.vmMu.Lock()
	defer e.vmMu.Unlock()
	return resources.NewTable(resources.LayerFramework, e.system)
}

// Close releases the VM. Later calls fail with ErrClosed.
func (e *Environment) Close() error {
	e.vmMu.Lock()
	defer e.vmMu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if e.vm != nil {
		e.vm.Interrupt("environment closed")
	}
	e.vm = nil
	e.classes = nil
	e.logger.Debug("Environment closed")
	return nil
}

// Closed reports whether Close has been called
func (e *Environment) Closed() bool {
	e.vmMu.Lock()
	defer e.vmMu.Unlock()
	return e.closed
}

// call routes one member call; the caller holds vmMu
func (e *Environment) call(sym intercept.SymbolID, this any, args []any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", sym, r)
		}
	}()

	var (
		original     intercept.Original
		instrumented = e.config.ShouldInstrument(sym.Class)
	)
	if c, ok := e.classes[sym.Class]; ok {
		instrumented = c.instrumented
		if fn, ok := c.methods[sym.Member]; ok {
			original = e.originalOf(fn)
		}
	}

	if !instrumented {
		if original == nil {
			return nil, fmt.Errorf("%s: %w", sym, dispatch.ErrNoImplementation)
		}
		return original(this, args)
	}

	return e.runtime.Dispatch(dispatch.Call{
		Symbol: sym,
		This:   this,
		Args:   args,
		Caller: e.caller,
	}, original)
}

func (e *Environment) originalOf(fn goja.Callable) intercept.Original {
	return func(this any, args []any) (any, error) {
		vals := make([]goja.Value, len(args))
		for i, a := range args {
			vals[i] = e.toJS(a)
		}
		res, err := fn(e.toJS(this), vals...)
		if err != nil {
			return nil, unwrapException(err)
		}
		return exportArg(res), nil
	}
}

func (e *Environment) newClass(name string) *class {
	live := map[string]any{}
	return &class{
		name:         name,
		baseline:     map[string]any{},
		live:         live,
		statics:      e.vm.ToValue(live),
		methods:      map[string]goja.Callable{},
		instrumented: e.config.ShouldInstrument(name),
	}
}

// setupGlobals installs the bundle API
func (e *Environment) setupGlobals() {
	e.vm.Set("require", goja.Undefined())
	e.vm.Set("process", goja.Undefined())
	e.vm.Set("module", goja.Undefined())
	e.vm.Set("exports", goja.Undefined())

	console := e.vm.NewObject()
	console.Set("log", e.consoleFunc(zap.DebugLevel))
	console.Set("info", e.consoleFunc(zap.InfoLevel))
	console.Set("warn", e.consoleFunc(zap.WarnLevel))
	console.Set("error", e.consoleFunc(zap.ErrorLevel))
	e.vm.Set("console", console)

	e.vm.Set("setTimeout", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	e.vm.Set("setInterval", func(goja.FunctionCall) goja.Value { return goja.Undefined() })

	e.vm.Set("framework", e.vm.NewObject())
	e.vm.Set("defineClass", e.defineClass)
	e.vm.Set("defineResources", e.defineResources)
	e.vm.Set("statics", e.staticsOf)
	e.vm.Set("invoke", e.invokeFromJS)
}

func (e *Environment) defineClass(call goja.FunctionCall) goja.Value {
	if e.sealed {
		panic(e.vm.NewTypeError("defineClass is only available while booting"))
	}
	name := call.Argument(0).String()
	if goja.IsUndefined(call.Argument(0)) || name == "" {
		panic(e.vm.NewTypeError("defineClass: class name is required"))
	}
	if _, dup := e.classes[name]; dup {
		panic(e.vm.NewTypeError("defineClass: %s already defined", name))
	}

	c := e.newClass(name)
	if def := call.Argument(1); !isNullish(def) {
		obj := def.ToObject(e.vm)

		if s := obj.Get("statics"); !isNullish(s) {
			exported, ok := s.Export().(map[string]any)
			if !ok {
				panic(e.vm.NewTypeError("defineClass: %s statics must be an object", name))
			}
			c.baseline = cloneMap(exported)
		}

		if m := obj.Get("methods"); !isNullish(m) {
			methods := m.ToObject(e.vm)
			for _, member := range methods.Keys() {
				fn, ok := goja.AssertFunction(methods.Get(member))
				if !ok {
					panic(e.vm.NewTypeError("defineClass: %s#%s is not a function", name, member))
				}
				c.methods[member] = fn
			}
		}
	}

	stub := e.vm.NewObject()
	for member := range c.methods {
		stub.Set(member, e.wrapper(intercept.Symbol(name, member)))
	}
	e.vm.Get("framework").ToObject(e.vm).Set(name, stub)

	restoreInto(c.live, c.baseline)
	e.classes[name] = c
	return goja.Undefined()
}

func (e *Environment) defineResources(call goja.FunctionCall) goja.Value {
	values, ok := call.Argument(0).Export().(map[string]any)
	if !ok {
		panic(e.vm.NewTypeError("defineResources: argument must be an object"))
	}
	maps.Copy(e.system, values)
	return goja.Undefined()
}

func (e *Environment) staticsOf(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	c, ok := e.classes[name]
	if !ok {
		panic(e.vm.NewTypeError("statics: unknown class %s", name))
	}
	return c.statics
}

func (e *Environment) invokeFromJS(call goja.FunctionCall) goja.Value {
	sym := intercept.Symbol(call.Argument(0).String(), call.Argument(1).String())
	if sym.IsZero() {
		panic(e.vm.NewTypeError("invoke: class and member are required"))
	}
	var args []any
	if len(call.Arguments) > 2 {
		args = exportArgs(call.Arguments[2:])
	}
	out, err := e.call(sym, nil, args)
	if err != nil {
		panic(e.vm.NewGoError(err))
	}
	return e.toJS(out)
}

// wrapper replaces a framework member with a routed native function
func (e *Environment) wrapper(sym intercept.SymbolID) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		out, err := e.call(sym, nil, exportArgs(call.Arguments))
		if err != nil {
			panic(e.vm.NewGoError(err))
		}
		return e.toJS(out)
	}
}

func (e *Environment) consoleFunc(level zapcore.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		if ce := e.logger.Check(level, strings.Join(parts, " ")); ce != nil {
			ce.Write(zap.String("source", "framework"))
		}
		return goja.Undefined()
	}
}

func (e *Environment) toJS(v any) goja.Value {
	switch v := v.(type) {
	case nil:
		return goja.Undefined()
	case goja.Value:
		return v
	default:
		return e.vm.ToValue(v)
	}
}

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

// exportArg converts a JS value for Go code. Script objects stay as
// *goja.Object so framework code keeps their identity across calls.
func exportArg(v goja.Value) any {
	if isNullish(v) {
		return nil
	}
	if obj, ok := v.(*goja.Object); ok {
		if _, fn := goja.AssertFunction(obj); fn {
			return obj
		}
		switch obj.Export().(type) {
		case map[string]any, []any:
			return obj
		}
	}
	return v.Export()
}

func exportArgs(vals []goja.Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = exportArg(v)
	}
	return out
}

// exportValue fully converts a result handed back to Go callers
func exportValue(v any) any {
	if gv, ok := v.(goja.Value); ok {
		if isNullish(gv) {
			return nil
		}
		return gv.Export()
	}
	return v
}

// unwrapException recovers the Go error a native function threw through JS
func unwrapException(err error) error {
	var ex *goja.Exception
	if !errors.As(err, &ex) {
		return err
	}
	if obj, ok := ex.Value().(*goja.Object); ok {
		if v := obj.Get("value"); v != nil {
			if goErr, ok := v.Export().(error); ok {
				return goErr
			}
		}
	}
	return errors.New(strings.TrimSpace(ex.Error()))
}
