package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nextsoundwave/pkg/cache"
	"nextsoundwave/pkg/interfaces"
	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/types"
)

// Search query limits.
const (
	MinQueryLength     = 2
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50
)

// ErrQueryTooShort is returned for queries under MinQueryLength characters.
var ErrQueryTooShort = fmt.Errorf("%w: query must be at least %d characters", types.ErrInvalidInput, MinQueryLength)

// SearchService runs a query through providers in order and caches results.
type SearchService struct {
	searchers []interfaces.Searcher
	cache     interfaces.Cache
	ttl       time.Duration
	log       *logging.Logger
}

// NewSearchService creates the service. c may be nil to disable caching.
func NewSearchService(searchers []interfaces.Searcher, c interfaces.Cache, ttl time.Duration, log *logging.Logger) *SearchService {
	return &SearchService{
		searchers: searchers,
		cache:     c,
		ttl:       ttl,
		log:       log.WithComponent("search-service"),
	}
}

// Name identifies the provider chain.
func (s *SearchService) Name() string {
	return "chain"
}

// ClampLimit maps a requested limit onto [1, MaxSearchLimit]; zero or less
// selects DefaultSearchLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return limit
	}
}

// Search returns up to limit results for query.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return nil, ErrQueryTooShort
	}
	limit = ClampLimit(limit)

	key := fmt.Sprintf("search:%d:%s", limit, strings.ToLower(query))
	return cache.GetOrLoad(ctx, s.cache, s.log, key, s.ttl, func(ctx context.Context) ([]types.SearchResult, error) {
		return s.search(ctx, query, limit)
	})
}

// search returns the first non-empty answer. If every provider answers empty
// the result is empty; if none answers the errors are joined.
func (s *SearchService) search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	if len(s.searchers) == 0 {
		return nil, errors.New("no search providers configured")
	}

	var errs []error
	answered := false
	for _, searcher := range s.searchers {
		results, err := searcher.Search(ctx, query, limit)
		if err != nil {
			s.log.Warn("search provider failed", "provider", searcher.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", searcher.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		answered = true
		if len(results) > 0 {
			if len(results) > limit {
				results = results[:limit]
			}
			return results, nil
		}
	}

	if answered {
		return []types.SearchResult{}, nil
	}
	return nil, errors.Join(errs...)
}
