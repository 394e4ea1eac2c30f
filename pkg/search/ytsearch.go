// Package search provides video search providers implementing
// interfaces.Searcher.
package search

import (
	"context"
	"fmt"

	"github.com/raitonoberu/ytsearch"

	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/types"
)

type searchFunc func(query string, limit int) ([]types.SearchResult, error)

// YouTube searches youtube.com directly.
type YouTube struct {
	search searchFunc
	log    *logging.Logger
}

// NewYouTube creates the provider.
func NewYouTube(log *logging.Logger) *YouTube {
	return &YouTube{
		search: ytsearchVideos,
		log:    log.WithComponent("search-youtube"),
	}
}

// Name returns the provider name.
func (s *YouTube) Name() string {
	return "youtube"
}

// Search runs the query. The underlying client takes no context, so the call
// is abandoned (not cancelled) when ctx ends.
func (s *YouTube) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	type res struct {
		results []types.SearchResult
		err     error
	}
	ch := make(chan res, 1)

	go func() {
		results, err := s.search(query, limit)
		ch <- res{results, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("youtube search: %w", r.err)
		}
		return r.results, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func ytsearchVideos(query string, limit int) ([]types.SearchResult, error) {
	results, err := ytsearch.VideoSearch(query).Next()
	if err != nil {
		return nil, err
	}

	items := make([]types.SearchResult, 0, limit)
	for _, video := range results.Videos {
		if len(items) >= limit {
			break
		}
		thumbnail := ""
		if len(video.Thumbnails) > 0 {
			thumbnail = video.Thumbnails[0].URL
		}
		items = append(items, types.SearchResult{
			ID:        video.ID,
			Title:     video.Title,
			Duration:  video.Duration,
			Thumbnail: thumbnail,
		})
	}
	return items, nil
}
