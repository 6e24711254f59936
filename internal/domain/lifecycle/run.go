package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/shadowbox/internal/domain/envcache"
	"github.com/GriffinCanCode/shadowbox/internal/domain/intercept"
	"github.com/GriffinCanCode/shadowbox/internal/domain/sandbox"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/shadowbox/internal/shared/id"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// run holds the per-unit state threaded through the stages
type run struct {
	o      *Orchestrator
	unit   *Unit
	ctx    context.Context
	result *Result

	lease     *envcache.Lease
	env       *sandbox.Environment
	owned     bool
	thread    id.ThreadID
	prevMain  id.ThreadID
	mainSet   bool
	app       *sandbox.Application
	tc        *Context
	beforeRan bool
}

// Run drives u through every stage and reports its single outcome
func (o *Orchestrator) Run(ctx context.Context, u *Unit) Result {
	res := Result{Unit: u, Name: u.Name, Version: u.Version}
	if u.Skip {
		res.Passed, res.Skipped = true, true
		o.logger.Info("Run skipped", zap.String("unit", u.FullName()))
		return res
	}

	start := time.Now()
	ctx = tracing.WithTraceID(ctx, tracing.TraceID(u.ID))
	var span *tracing.Span
	if o.tracer != nil {
		span, ctx = o.tracer.StartSpan(ctx, "run")
		span.SetTag("unit", u.FullName())
		span.SetTag("version", u.Version.String())
	}

	r := &run{o: o, unit: u, ctx: ctx, result: &res}

	var errs []error
	if err := r.stage(StageAcquire, r.acquire); err != nil {
		errs = append(errs, err)
	} else {
		if err := r.stage(StagePrime, r.prime); err != nil {
			errs = append(errs, err)
		} else if err := r.stage(StageExecute, r.execute); err != nil {
			errs = append(errs, err)
		}
		if err := r.stage(StageTeardown, r.teardown); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.stage(StageRelease, r.release); err != nil {
		errs = append(errs, err)
	}

	res.Err = errors.Join(errs...)
	res.Passed = res.Err == nil
	res.Duration = time.Since(start)

	o.metrics.RecordRun(u.Version.String(), res.Passed, res.Duration)
	if span != nil {
		span.SetError(res.Err)
		span.Finish()
		o.tracer.Submit(span)
	}

	fields := []zap.Field{
		zap.String("unit", u.FullName()),
		zap.Stringer("version", u.Version),
		zap.Duration("took", res.Duration),
	}
	if res.Passed {
		o.logger.Info("Run passed", fields...)
	} else {
		o.logger.Warn("Run failed", append(fields, zap.String("stage", string(res.Stage)), zap.Error(res.Err))...)
	}
	return res
}

func (r *run) stage(s Stage, fn func() error) error {
	var span *tracing.Span
	if r.o.tracer != nil {
		span, _ = r.o.tracer.StartSpan(r.ctx, string(s))
	}

	start := time.Now()
	err := fn()
	took := time.Since(start)

	r.result.Stages = append(r.result.Stages, StageTiming{Stage: s, Duration: took, Err: err})
	r.o.metrics.RecordStage(string(s), took, err)
	if span != nil {
		span.SetError(err)
		span.Finish()
		r.o.tracer.Submit(span)
	}

	if err == nil {
		return nil
	}
	if r.result.Stage == "" {
		r.result.Stage = s
	}
	return &StageError{Stage: s, Version: r.unit.Version, Unit: r.unit.FullName(), Err: err}
}

func (r *run) acquire() error {
	names := r.unit.Config.Shadows

	shadows := intercept.Empty()
	var classes []string
	if len(names) > 0 {
		var err error
		if shadows, err = r.o.registry.Table(names...); err != nil {
			return err
		}
		if classes, err = r.o.registry.Classes(names...); err != nil {
			return err
		}
	}

	cfg, err := intercept.ConfigFor(r.o.intercept, r.unit.Config, classes)
	if err != nil {
		return err
	}

	r.lease, err = r.o.cache.GetOrCreate(r.ctx, cfg, r.unit.Version)
	if err != nil {
		return err
	}
	r.env = r.lease.Env()
	r.env.Own()
	r.owned = true

	return r.env.Install(intercept.Layer(r.env.BaseTable(), shadows))
}

func (r *run) prime() error {
	if err := r.env.ResetStaticState(); err != nil {
		return types.Wrap(types.ErrTeardown, fmt.Errorf("reset before run: %w", err))
	}

	r.thread = id.NewThreadID()
	r.prevMain = r.env.SetMainThread(r.thread)
	r.mainSet = true

	views, err := r.o.resources.Views(r.unit.Manifest, r.env.SystemResources())
	if err != nil {
		return types.KindOr(err, types.ErrResolution)
	}

	r.app = r.env.NewApplication(r.unit.Manifest)
	r.env.SetApplication(r.app)
	if err := r.app.Create(r.thread); err != nil {
		return types.KindOr(fmt.Errorf("create application: %w", err), types.ErrExecution)
	}

	r.beforeRan = true
	if err := r.o.hooks.BeforeTest(r.unit); err != nil {
		return types.KindOr(fmt.Errorf("before test: %w", err), types.ErrExecution)
	}

	r.tc = &Context{
		ctx:    r.ctx,
		unit:   r.unit,
		env:    r.env,
		app:    r.app,
		views:  views,
		thread: r.thread,
	}
	if r.unit.newInstance != nil {
		r.tc.Instance = r.unit.newInstance()
	}
	if err := r.o.hooks.PrepareTest(r.tc); err != nil {
		return types.KindOr(fmt.Errorf("prepare test: %w", err), types.ErrExecution)
	}
	return nil
}

func (r *run) execute() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = types.Wrap(types.ErrExecution, fmt.Errorf("test panicked: %w", e))
				return
			}
			err = types.Wrap(types.ErrExecution, fmt.Errorf("test panicked: %v", rec))
		}
	}()
	if r.unit.Body == nil {
		return nil
	}
	return types.Wrap(types.ErrExecution, r.unit.Body(r.tc))
}

// teardown attempts each step regardless of the others
func (r *run) teardown() error {
	var errs []error
	guard := func(step string, fn func() error) {
		defer func() {
			if rec := recover(); rec != nil {
				errs = append(errs, fmt.Errorf("%s panicked: %v", step, rec))
			}
		}()
		if err := fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step, err))
		}
	}

	if r.app != nil {
		guard("terminate application", func() error { return r.app.Terminate(r.thread) })
	}
	if r.beforeRan {
		guard("after test", func() error { return r.o.hooks.AfterTest(r.unit) })
	}
	guard("reset static state", r.env.ResetStaticState)

	return types.Wrap(types.ErrTeardown, errors.Join(errs...))
}

func (r *run) release() error {
	if r.env != nil {
		if r.mainSet {
			r.env.SetMainThread(r.prevMain)
		}
		r.env.SetApplication(nil)
		if r.owned {
			r.env.Disown()
		}
	}
	r.app, r.tc = nil, nil
	if r.lease != nil {
		r.lease.Release()
	}
	return nil
}
