/*
Package tracing provides lightweight spans for lifecycle stages and HTTP requests.

# Overview

Every test run unit is one trace (seeded with its run ID); each lifecycle
stage is a span under it. Finished spans are logged and handed to optional
exporters, which is how the report package collects stage timings.

# Usage

	tracer := tracing.New("shadowbox", logger)
	defer tracer.Close()

	ctx = tracing.WithTraceID(ctx, tracing.TraceID(runID))
	span, ctx := tracer.StartSpan(ctx, "prime")
	defer func() {
		span.SetError(err)
		span.Finish()
		tracer.Submit(span)
	}()

The mirror server uses HTTPMiddleware to continue traces passed in
X-Trace-ID / X-Span-ID headers.
*/
package tracing
