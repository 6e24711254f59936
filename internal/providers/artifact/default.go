package artifact

import (
	"context"
	"errors"

	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/config"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/monitoring"
)

// NewDefault builds the resolver chain for cfg:
//
//   - an offline directory, when configured, is used exclusively
//   - otherwise the remote repository behind the TTL cache
//   - a properties file, when configured, overrides either
func NewDefault(cfg config.ArtifactConfig, metrics *monitoring.Metrics, logger *logging.Logger) (Resolver, error) {
	var r Resolver
	if cfg.OfflineDir != "" {
		r = NewLocal(cfg.OfflineDir)
	} else {
		remote := NewRemote(cfg.Repository, cfg.CacheDir,
			WithRateLimit(cfg.RPS),
			WithTimeout(cfg.Timeout),
			WithRemoteMetrics(metrics),
			WithRemoteLogger(logger))
		opts := []CacheOption{
			WithTTL(cfg.TTL),
			WithCacheMetrics(metrics),
			WithCacheLogger(logger),
		}
		if cfg.StaleFallback {
			opts = append(opts, WithStaleFallback())
		}
		r = NewCached(remote, cfg.CacheDir, opts...)
	}

	if cfg.Properties != "" {
		return LoadProperties(cfg.Properties, r)
	}
	return r, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
