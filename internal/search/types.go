// Package search composes ranked-list backends into hybrid search.
// Backends run in parallel and their lists are merged with weighted RRF.
package search

import (
	"context"

	"github.com/Aman-CERP/rankfuse/internal/fusion"
)

// Backend produces a ranked result list for a query. Lists must be ordered
// best-first; the fusion engine never re-ranks within a single backend's
// list. Implementations must be safe for concurrent Search calls.
type Backend interface {
	// Name identifies the backend in logs and stats.
	Name() string

	// MatchType tags results from this backend for fusion weighting.
	MatchType() fusion.MatchType

	// Search returns up to limit results ranked best-first.
	Search(ctx context.Context, query string, limit int) ([]fusion.SearchResult, error)
}

// Options configures a single search call.
type Options struct {
	// Limit is the maximum number of fused results to return.
	// Zero means the engine default.
	Limit int
}

// EngineConfig configures the hybrid search engine.
type EngineConfig struct {
	// DefaultLimit is the default number of results (default: 10).
	DefaultLimit int

	// MaxLimit is the maximum allowed results (default: 100).
	MaxLimit int

	// CacheSize is the number of query results kept in the LRU cache
	// (default: 128). Zero disables caching.
	CacheSize int

	// Fusion configures the RRF fusion stage.
	Fusion fusion.Config
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit: 10,
		MaxLimit:     100,
		CacheSize:    128,
		Fusion:       fusion.DefaultConfig(),
	}
}

// EngineStats reports per-backend and cache statistics.
type EngineStats struct {
	// Backends maps backend name to its match type.
	Backends map[string]fusion.MatchType

	// CacheLen is the number of cached query results.
	CacheLen int
}
