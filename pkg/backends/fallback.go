package backends

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"nextsoundwave/pkg/invidious"
	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/types"
)

// FallbackBackend extracts through a public Invidious instance.
type FallbackBackend struct {
	client *invidious.Client
	embed  EmbedHosts
	log    *logging.Logger
}

// NewFallbackBackend wraps a client already bound to an instance.
func NewFallbackBackend(client *invidious.Client, embed EmbedHosts, log *logging.Logger) *FallbackBackend {
	if embed == (EmbedHosts{}) {
		embed = DefaultEmbedHosts
	}
	return &FallbackBackend{
		client: client,
		embed:  embed,
		log:    log.WithComponent("fallback-backend").WithInstance(client.Instance()),
	}
}

// Name returns the backend family name.
func (b *FallbackBackend) Name() string {
	return "invidious"
}

// Instance is the base URL the backend is bound to.
func (b *FallbackBackend) Instance() string {
	return b.client.Instance()
}

// IsAvailable probes the bound instance.
func (b *FallbackBackend) IsAvailable(ctx context.Context) bool {
	return b.client.Probe(ctx)
}

// Extract resolves url through the instance API.
func (b *FallbackBackend) Extract(ctx context.Context, url string) (types.Track, error) {
	id, err := parseID(url)
	if err != nil {
		return types.Track{}, err
	}

	video, err := b.client.Video(ctx, id.String())
	if err != nil {
		return types.Track{}, fmt.Errorf("%w: %s: %v", types.ErrExtractionFailed, b.client.Instance(), err)
	}

	audioURL := selectAudioURL(video)
	if audioURL == "" {
		b.log.WithVideoID(id).Warn("no audio format in response")
	}

	related := lo.Map(video.RecommendedVideos, func(r invidious.Recommended, _ int) types.RelatedItem {
		// Related items from an instance carry no duration.
		return types.RelatedItem{ID: r.VideoID, Title: r.Title}
	})

	track := types.Track{
		ID:       id,
		Title:    orDefault(video.Title, types.DefaultTitle),
		Duration: max(0, video.LengthSeconds),
		AudioURL: audioURL,
		Codec:    types.DefaultCodec,
		Backend:  types.BackendFallback,
		Related:  capRelated(related),
	}
	b.embed.apply(&track)

	return track, nil
}

// selectAudioURL returns the first opus audio-only format, else the first
// audio-only format, else "".
func selectAudioURL(v *invidious.Video) string {
	formats := append(append([]invidious.Format(nil), v.AdaptiveFormats...), v.FormatStreams...)
	audio := lo.Filter(formats, func(f invidious.Format, _ int) bool {
		return f.IsAudio()
	})

	if f, ok := lo.Find(audio, func(f invidious.Format) bool {
		return strings.Contains(strings.ToLower(f.Type), "opus") ||
			strings.Contains(strings.ToLower(f.Encoding), "opus")
	}); ok {
		return f.URL
	}
	if len(audio) > 0 {
		return audio[0].URL
	}
	return ""
}
