package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/shadowbox/internal/domain/envcache"
	"github.com/GriffinCanCode/shadowbox/internal/domain/intercept"
	"github.com/GriffinCanCode/shadowbox/internal/domain/resources"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/shadowbox/internal/providers/configmerge"
	"github.com/GriffinCanCode/shadowbox/internal/providers/manifest"
	"github.com/GriffinCanCode/shadowbox/internal/providers/selector"
	"github.com/GriffinCanCode/shadowbox/internal/shared/id"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// Orchestrator expands test methods and drives units through their stages.
// It is safe for concurrent use; units on the same environment serialize.
type Orchestrator struct {
	cache     *envcache.Cache
	registry  *intercept.Registry
	intercept intercept.Config

	selector  VersionSelector
	resolver  ConfigResolver
	manifests ManifestLoader
	resources ResourceTableProvider
	hooks     ApplicationLifecycleHook

	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
	logger  *logging.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRegistry sets the shadows tests can name
func WithRegistry(r *intercept.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithInterceptConfig sets the base instrumentation rules
func WithInterceptConfig(c intercept.Config) Option {
	return func(o *Orchestrator) { o.intercept = c }
}

// WithVersionSelector replaces the version selector
func WithVersionSelector(s VersionSelector) Option {
	return func(o *Orchestrator) { o.selector = s }
}

// WithConfigResolver replaces the config resolver
func WithConfigResolver(r ConfigResolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithManifestLoader replaces the manifest loader
func WithManifestLoader(l ManifestLoader) Option {
	return func(o *Orchestrator) { o.manifests = l }
}

// WithResourceProvider replaces the resource table provider
func WithResourceProvider(p ResourceTableProvider) Option {
	return func(o *Orchestrator) { o.resources = p }
}

// WithHooks sets the application lifecycle hooks
func WithHooks(h ApplicationLifecycleHook) Option {
	return func(o *Orchestrator) { o.hooks = h }
}

// WithMetrics records run and stage metrics
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer emits one span per stage
func WithTracer(t *tracing.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator drawing environments from cache
func New(cache *envcache.Cache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cache:     cache,
		registry:  intercept.NewRegistry(),
		intercept: intercept.DefaultConfig(),
		hooks:     DefaultHooks{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.OrNop(o.logger).Named("lifecycle")

	if o.selector == nil {
		o.selector = selector.New(cache.Catalog())
	}
	if o.resolver == nil {
		o.resolver = configmerge.New(types.Config{}, types.Config{})
	}
	if o.manifests == nil {
		o.manifests = manifest.NewLoader(manifest.WithLogger(o.logger))
	}
	if o.resources == nil {
		o.resources = resources.NewProvider(o.logger)
	}
	return o
}

// Expand turns every method of class into units. Methods that fail to
// configure contribute no units; their errors are joined.
func (o *Orchestrator) Expand(class TestClass) ([]*Unit, error) {
	if err := class.validate(); err != nil {
		return nil, types.Wrap(types.ErrConfiguration, err)
	}

	var (
		units []*Unit
		errs  []error
	)
	for _, m := range class.Methods {
		us, err := o.ExpandMethod(class, m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		units = append(units, us...)
	}
	return units, errors.Join(errs...)
}

// ExpandMethod selects versions for one method and creates a unit per version
func (o *Orchestrator) ExpandMethod(class TestClass, m TestMethod) ([]*Unit, error) {
	if m.Ignore {
		return []*Unit{{
			ID:     id.NewRunID(),
			Class:  class.Name,
			Method: m.Name,
			Name:   m.Name,
			Skip:   true,
		}}, nil
	}

	fail := func(err error) error {
		return types.KindOr(fmt.Errorf("failed to configure %s.%s: %w", class.Name, m.Name, err), types.ErrConfiguration)
	}

	cfg, err := o.resolver.Resolve(types.ConfigTarget{
		Class:        class.Name,
		ClassConfig:  class.Config,
		Method:       m.Name,
		MethodConfig: m.Config,
	})
	if err != nil {
		return nil, fail(err)
	}

	man, err := o.manifests.Load(cfg)
	if err != nil {
		return nil, fail(err)
	}

	versions, err := o.selector.Select(cfg, man)
	if err != nil {
		return nil, fail(err)
	}

	units := make([]*Unit, 0, len(versions))
	for _, v := range versions {
		units = append(units, &Unit{
			ID:          id.NewRunID(),
			Class:       class.Name,
			Method:      m.Name,
			Name:        unitName(m.Name, v, len(versions)),
			Version:     v,
			Config:      cfg.Clone(),
			Manifest:    man,
			Body:        m.Body,
			newInstance: class.NewInstance,
		})
	}
	if len(units) == 0 {
		o.logger.Debug("No versions selected", zap.String("method", class.Name+"."+m.Name))
	}
	return units, nil
}

// RunAll expands and runs every method of class in declaration order. A
// method that fails to configure yields one failed result at the select stage.
func (o *Orchestrator) RunAll(ctx context.Context, class TestClass) ([]Result, error) {
	if err := class.validate(); err != nil {
		return nil, types.Wrap(types.ErrConfiguration, err)
	}

	var results []Result
	for _, m := range class.Methods {
		units, err := o.ExpandMethod(class, m)
		if err != nil {
			results = append(results, selectFailure(class, m, err))
			continue
		}
		for _, u := range units {
			results = append(results, o.Run(ctx, u))
		}
	}
	return results, nil
}

// RunTests runs class as go subtests, one per unit
func (o *Orchestrator) RunTests(t *testing.T, class TestClass) []Result {
	t.Helper()
	if err := class.validate(); err != nil {
		t.Fatal(err)
	}

	var results []Result
	for _, m := range class.Methods {
		units, err := o.ExpandMethod(class, m)
		if err != nil {
			results = append(results, selectFailure(class, m, err))
			t.Run(m.Name, func(t *testing.T) { t.Fatal(err) })
			continue
		}
		for _, u := range units {
			t.Run(u.Name, func(t *testing.T) {
				res := o.Run(t.Context(), u)
				results = append(results, res)
				switch {
				case res.Skipped:
					t.Skip("ignored")
				case !res.Passed:
					t.Error(res.Err)
				}
			})
		}
	}
	return results
}

func selectFailure(class TestClass, m TestMethod, err error) Result {
	return Result{
		Name:  m.Name,
		Stage: StageSelect,
		Err:   &StageError{Stage: StageSelect, Unit: class.Name + "." + m.Name, Err: err},
	}
}
