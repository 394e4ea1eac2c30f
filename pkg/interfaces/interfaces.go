// Package interfaces defines the core abstractions for track extraction.
// Backends, engines and search providers implement these interfaces, so the
// orchestrator and handlers can be wired with real components or test doubles.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/samber/mo"

	"nextsoundwave/pkg/types"
)

// Backend is one extraction strategy.
//
// To add a new backend:
// 1. Create a new file in pkg/backends/
// 2. Implement this interface
// 3. Hand it to the orchestrator in internal/app
type Backend interface {
	// Extract resolves a YouTube URL to a track.
	// Errors wrap types.ErrInvalidInput or types.ErrExtractionFailed.
	Extract(ctx context.Context, url string) (types.Track, error)

	// IsAvailable is a cheap liveness probe. It never returns an error.
	IsAvailable(ctx context.Context) bool

	// Name returns a stable human-readable identity for logs.
	Name() string
}

// Engine is the black-box capability behind the primary backend: it pulls
// metadata and a direct audio stream URL for a video id.
type Engine interface {
	// Name returns a unique identifier for this engine.
	Name() string

	// Available reports whether the engine can be used at all.
	Available(ctx context.Context) bool

	// Fetch looks up a single video.
	Fetch(ctx context.Context, id types.VideoID) (*types.EngineInfo, error)
}

// Searcher finds videos by free-text query.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error)
}

// Extractor is the orchestrator surface consumed by the HTTP layer and CLI.
type Extractor interface {
	Extract(ctx context.Context, url string, preferred mo.Option[types.BackendKind]) types.Outcome
	HealthCheck(ctx context.Context) types.HealthReport
}

// Cache stores JSON-serialisable values with an expiry.
type Cache interface {
	// Get decodes the value stored under key into target.
	// It returns false when the key is missing or expired.
	Get(ctx context.Context, key string, target any) (bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Close releases any resources held by the cache.
	Close() error
}

// HTTPClient abstracts HTTP operations for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
