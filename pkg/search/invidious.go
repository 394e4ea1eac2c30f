package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"nextsoundwave/pkg/invidious"
	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/types"
)

// Invidious searches through public instances, trying each in order.
type Invidious struct {
	clients []*invidious.Client
	log     *logging.Logger
}

// NewInvidious creates the provider.
func NewInvidious(clients []*invidious.Client, log *logging.Logger) *Invidious {
	return &Invidious{
		clients: clients,
		log:     log.WithComponent("search-invidious"),
	}
}

// Name returns the provider name.
func (s *Invidious) Name() string {
	return "invidious"
}

// Search returns the results of the first instance that answers.
func (s *Invidious) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	if len(s.clients) == 0 {
		return nil, errors.New("no invidious instances configured")
	}

	var errs []error
	for _, c := range s.clients {
		items, err := c.Search(ctx, query, limit)
		if err != nil {
			s.log.WithInstance(c.Instance()).WithError(err).Debug("instance search failed")
			errs = append(errs, fmt.Errorf("%s: %w", c.Instance(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return lo.Map(items, func(it invidious.SearchItem, _ int) types.SearchResult {
			return types.SearchResult{
				ID:        it.VideoID,
				Title:     it.Title,
				Duration:  it.LengthSeconds,
				Thumbnail: pickThumbnail(it.VideoThumbnails),
			}
		}), nil
	}
	return nil, errors.Join(errs...)
}

// pickThumbnail prefers the medium quality image.
func pickThumbnail(thumbs []invidious.Thumbnail) string {
	if t, ok := lo.Find(thumbs, func(t invidious.Thumbnail) bool { return t.Quality == "medium" }); ok {
		return t.URL
	}
	if len(thumbs) > 0 {
		return thumbs[0].URL
	}
	return ""
}
