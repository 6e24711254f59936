/*
Package monitoring provides Prometheus metrics for the engine.

# Overview

Every Metrics value owns a private registry, so several engines (or several
tests) in one process never collide on metric registration.

# Metrics

- Environment cache: hits, misses, evictions, waits, size, build duration
- Dispatch: routed calls per version and outcome (shadowed, original, missing)
- Lifecycle: runs per version and outcome, stage durations and failures
- Artifacts: resolutions per source and status
- HTTP: mirror server requests

All Record methods are safe on a nil *Metrics.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	timer := monitoring.NewTimer(metrics, "prime")
	// ... run the stage ...
	timer.Stop(err)
*/
package monitoring
