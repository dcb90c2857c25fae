// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about layout construction, transforms, and
// cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces per event category
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, which keeps the layout
// engine free of observability framework imports.
//
// # Usage
//
//	func main() {
//	    observability.SetLayoutHooks(&myLayoutHooks{})
//	    // ... run application
//	}
//
// Call sites emit events around the operation:
//
//	observability.Layout().OnLayoutStart(ctx, seqCount)
//	// ... build layout ...
//	observability.Layout().OnLayoutComplete(ctx, seqCount, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// LayoutHooks receives events from layout construction and transforms.
type LayoutHooks interface {
	// Ingest events
	OnIngestStart(ctx context.Context, format, source string)
	OnIngestComplete(ctx context.Context, format, source string, rowCount int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, seqCount int)
	OnLayoutComplete(ctx context.Context, seqCount int, duration time.Duration, err error)

	// Transform events
	OnTransform(ctx context.Context, op string, duration time.Duration, err error)

	// OnRowsDropped records lenient-mode reference drops for one track.
	OnRowsDropped(ctx context.Context, trackID string, dropped int)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnIngestStart(context.Context, string, string) {}
func (NoopLayoutHooks) OnIngestComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopLayoutHooks) OnLayoutStart(context.Context, int)                        {}
func (NoopLayoutHooks) OnLayoutComplete(context.Context, int, time.Duration, error) {}
func (NoopLayoutHooks) OnTransform(context.Context, string, time.Duration, error)   {}
func (NoopLayoutHooks) OnRowsDropped(context.Context, string, int)                  {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	layoutHooks LayoutHooks = NoopLayoutHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	hooksMu     sync.RWMutex
)

// SetLayoutHooks registers custom layout hooks.
// Call once at application startup before any layout operations.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// Call once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Reset restores the no-op defaults. Intended for tests.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	layoutHooks = NoopLayoutHooks{}
	cacheHooks = NoopCacheHooks{}
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}
