// Package backends provides the extraction backends and instance discovery.
//
// To add a new backend:
// 1. Create a new file (e.g., mybackend.go)
// 2. Implement interfaces.Backend
// 3. Hand it to the orchestrator (see internal/app)
package backends

import (
	"fmt"

	"github.com/samber/lo"

	"nextsoundwave/pkg/types"
	"nextsoundwave/pkg/urlutil"
	"nextsoundwave/pkg/videoid"
)

// EmbedHosts are the hosts used for the player embed URLs of every track.
type EmbedHosts struct {
	Primary  string
	Fallback string
}

// DefaultEmbedHosts points at youtube.com and the first public instance.
var DefaultEmbedHosts = EmbedHosts{
	Primary:  "www.youtube.com",
	Fallback: "yewtu.be",
}

func (h EmbedHosts) apply(t *types.Track) {
	t.EmbedURL = urlutil.EmbedURL(h.Primary, t.ID.String())
	t.FallbackEmbedURL = urlutil.EmbedURL(h.Fallback, t.ID.String())
}

func parseID(url string) (types.VideoID, error) {
	id, ok := videoid.Parse(url).Get()
	if !ok {
		return "", fmt.Errorf("%w: invalid YouTube URL: %s", types.ErrInvalidInput, url)
	}
	return id, nil
}

// capRelated keeps at most types.MaxRelated items and fills in missing titles.
func capRelated(items []types.RelatedItem) []types.RelatedItem {
	if len(items) > types.MaxRelated {
		items = items[:types.MaxRelated]
	}
	return lo.Map(items, func(r types.RelatedItem, _ int) types.RelatedItem {
		if r.Title == "" {
			r.Title = types.DefaultRelatedTitle
		}
		if r.Duration < 0 {
			r.Duration = 0
		}
		return r
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
