package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/rankfuse/internal/errors"
	"github.com/Aman-CERP/rankfuse/internal/fusion"
)

// Engine runs all configured backends in parallel and fuses their ranked
// lists with weighted RRF. Recent query results are kept in an LRU cache
// that must be invalidated by the owner on any index mutation.
type Engine struct {
	backends []Backend
	fusion   *fusion.Engine
	cache    *lru.Cache[string, []fusion.SearchResult]
	config   EngineConfig
}

// NewEngine creates a hybrid search engine over the given backends.
// At least one backend is required.
func NewEngine(config EngineConfig, backends ...Backend) (*Engine, error) {
	if len(backends) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"at least one search backend is required", nil)
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 10
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = 100
	}

	fusionEngine, err := fusion.NewEngine(config.Fusion)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		backends: backends,
		fusion:   fusionEngine,
		config:   config,
	}

	if config.CacheSize > 0 {
		cache, err := lru.New[string, []fusion.SearchResult](config.CacheSize)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err)
		}
		e.cache = cache
	}

	return e, nil
}

// Search fans the query out to every backend concurrently, fuses the lists,
// and returns the top results. A blank query is rejected with
// ErrCodeQueryEmpty before any backend runs. A failing backend degrades
// gracefully: its list is empty and the failure is logged, so one broken
// backend cannot take down hybrid search.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]fusion.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty,
			"query is empty or whitespace-only", nil)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = e.config.DefaultLimit
	}
	if limit > e.config.MaxLimit {
		limit = e.config.MaxLimit
	}

	cacheKey := fmt.Sprintf("%s|%d", query, limit)
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			slog.Debug("search_cache_hit", slog.String("query", query))
			return cached, nil
		}
	}

	// Fetch more than the final limit per backend so fusion has enough
	// overlap to detect hybrid matches.
	fetchLimit := limit * 2

	lists := make([][]fusion.SearchResult, len(e.backends))
	weights := make([]float64, len(e.backends))

	g, gctx := errgroup.WithContext(ctx)
	for i, backend := range e.backends {
		weights[i] = e.fusion.WeightFor(backend.MatchType())
		g.Go(func() error {
			results, err := backend.Search(gctx, query, fetchLimit)
			if err != nil {
				// Query-shape errors are the caller's problem, not a
				// degraded backend.
				if errors.HasCode(err, errors.ErrCodeQueryEmpty) {
					return err
				}
				slog.Warn("backend_search_failed",
					slog.String("backend", backend.Name()),
					slog.String("error", err.Error()))
				return nil
			}
			lists[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := e.fusion.RRFFusion(lists, weights)
	if len(fused) > limit {
		fused = fused[:limit]
	}

	if e.cache != nil {
		e.cache.Add(cacheKey, fused)
	}

	slog.Debug("search_complete",
		slog.String("query", query),
		slog.Int("results", len(fused)))
	return fused, nil
}

// InvalidateCache drops all cached query results. Owners must call this
// after any index mutation so cached rankings never go stale.
func (e *Engine) InvalidateCache() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

// Fusion exposes the underlying fusion engine for direct fusion of
// externally produced lists.
func (e *Engine) Fusion() *fusion.Engine {
	return e.fusion
}

// Stats reports backend registration and cache occupancy.
func (e *Engine) Stats() EngineStats {
	stats := EngineStats{Backends: make(map[string]fusion.MatchType, len(e.backends))}
	for _, b := range e.backends {
		stats.Backends[b.Name()] = b.MatchType()
	}
	if e.cache != nil {
		stats.CacheLen = e.cache.Len()
	}
	return stats
}
