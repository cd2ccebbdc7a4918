package cacheports

import "context"

// Tracer provides structured spans and events around cache and reconciler
// operations.
type Tracer interface {
	// StartSpan starts a new tracing span and returns the context and finish function.
	StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error))

	// Event logs a point-in-time event within the current span, if any.
	Event(ctx context.Context, name string, attrs map[string]any)
}
