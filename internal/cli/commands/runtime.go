// Package commands implements the shadowbox subcommands.
package commands

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/shadowbox/internal/domain/envcache"
	"github.com/GriffinCanCode/shadowbox/internal/domain/lifecycle"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/config"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/shadowbox/internal/providers/artifact"
	"github.com/GriffinCanCode/shadowbox/internal/providers/configmerge"
	"github.com/GriffinCanCode/shadowbox/internal/providers/manifest"
	"github.com/GriffinCanCode/shadowbox/internal/providers/selector"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// Runtime is the shared state every subcommand works against
type Runtime struct {
	Config   *config.Config
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	Tracer   *tracing.Tracer
	Catalog  *platform.Catalog
	Resolver artifact.Resolver
}

// NewRuntime wires the runtime from cfg
func NewRuntime(cfg *config.Config, logger *logging.Logger) (*Runtime, error) {
	logger = logging.OrNop(logger)
	metrics := monitoring.NewMetrics()

	resolver, err := artifact.NewDefault(cfg.Artifact, metrics, logger)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Tracer:   tracing.New("shadowbox", logger.Logger),
		Catalog:  platform.DefaultCatalog(),
		Resolver: resolver,
	}, nil
}

// Close flushes the tracer and logger
func (r *Runtime) Close() {
	r.Tracer.Close()
	_ = r.Logger.Sync()
}

// Versions returns the catalog versions enabled by configuration, or all of
// them when none are configured
func (r *Runtime) Versions() ([]platform.Version, error) {
	all := r.Catalog.Versions()
	if len(r.Config.Project.Versions) == 0 {
		return all, nil
	}

	out := make([]platform.Version, 0, len(r.Config.Project.Versions))
	for _, n := range r.Config.Project.Versions {
		v := platform.Version(n)
		if !r.Catalog.Contains(v) {
			return nil, types.Wrap(types.ErrConfiguration, fmt.Errorf("unsupported platform version %d", n))
		}
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Orchestrator builds a lifecycle orchestrator over a fresh environment cache
func (r *Runtime) Orchestrator(opts ...lifecycle.Option) (*lifecycle.Orchestrator, error) {
	enabled, err := r.Versions()
	if err != nil {
		return nil, err
	}

	defaults := types.Config{Manifest: r.Config.Project.Manifest}
	resolver, err := configmerge.FromProjectFile(defaults, r.Config.Project.File)
	if err != nil {
		return nil, err
	}

	cache := envcache.New(r.Catalog, r.Resolver,
		envcache.WithSizeFactor(r.Config.Cache.SizeFactor),
		envcache.WithMetrics(r.Metrics),
		envcache.WithLogger(r.Logger.Named("envcache")))

	r.Logger.Debug("Orchestrator ready",
		zap.Int("capacity", cache.Capacity()),
		zap.Int("versions", len(enabled)))

	base := []lifecycle.Option{
		lifecycle.WithVersionSelector(selector.New(r.Catalog, selector.WithEnabled(enabled...))),
		lifecycle.WithConfigResolver(resolver),
		lifecycle.WithManifestLoader(manifest.NewLoader(manifest.WithLogger(r.Logger.Named("manifest")))),
		lifecycle.WithMetrics(r.Metrics),
		lifecycle.WithTracer(r.Tracer),
		lifecycle.WithLogger(r.Logger.Named("lifecycle")),
	}
	return lifecycle.New(cache, append(base, opts...)...), nil
}

type runtimeKey struct{}

// WithRuntime stores rt in ctx
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// RuntimeFrom returns the runtime stored in ctx
func RuntimeFrom(ctx context.Context) (*Runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*Runtime)
	if !ok || rt == nil {
		return nil, fmt.Errorf("runtime not initialized")
	}
	return rt, nil
}
