// Package engines holds the primary extraction engines: a native Go client
// and a wrapper around the yt-dlp binary. Both implement interfaces.Engine.
package engines

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/samber/lo"

	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/types"
)

// ErrNoAudioFormat is returned when a video exposes no audio stream.
var ErrNoAudioFormat = errors.New("no audio formats found for video")

// KKDAI resolves videos with the native github.com/kkdai/youtube client.
type KKDAI struct {
	client *youtube.Client
	log    *logging.Logger
}

// NewKKDAI creates the engine. httpClient may be nil.
func NewKKDAI(httpClient *http.Client, log *logging.Logger) *KKDAI {
	return &KKDAI{
		client: &youtube.Client{HTTPClient: httpClient},
		log:    log.WithComponent("engine-kkdai"),
	}
}

// Name returns the engine name.
func (e *KKDAI) Name() string {
	return "kkdai"
}

// Available is always true: the engine has no external requirements.
func (e *KKDAI) Available(ctx context.Context) bool {
	return true
}

// Fetch looks up a video and resolves the stream URL of its best audio format.
func (e *KKDAI) Fetch(ctx context.Context, id types.VideoID) (*types.EngineInfo, error) {
	video, err := e.client.GetVideoContext(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("youtube client error: %w", err)
	}

	format := selectAudioFormat(video.Formats)
	if format == nil {
		return nil, ErrNoAudioFormat
	}

	link, err := e.client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("get stream URL error: %w", err)
	}

	e.log.Debug("resolved stream", "video_id", video.ID, "itag", format.ItagNo, "mime", format.MimeType)

	return &types.EngineInfo{
		ID:       video.ID,
		Title:    video.Title,
		Duration: int(video.Duration.Seconds()),
		URL:      link,
		ACodec:   codecFromMime(format.MimeType),
	}, nil
}

// selectAudioFormat picks opus first, then any webm audio, then the audio
// format with the highest bitrate. Muxed formats are used only when no
// audio-only format exists.
func selectAudioFormat(formats youtube.FormatList) *youtube.Format {
	audio := lo.Filter(formats, func(f youtube.Format, _ int) bool {
		return strings.HasPrefix(f.MimeType, "audio/")
	})
	if len(audio) == 0 {
		audio = lo.Filter(formats, func(f youtube.Format, _ int) bool {
			return f.AudioChannels > 0
		})
	}
	if len(audio) == 0 {
		return nil
	}

	if f, ok := lo.Find(audio, func(f youtube.Format) bool {
		return strings.Contains(strings.ToLower(f.MimeType), "opus")
	}); ok {
		return &f
	}
	if f, ok := lo.Find(audio, func(f youtube.Format) bool {
		return strings.HasPrefix(f.MimeType, "audio/webm")
	}); ok {
		return &f
	}

	best := lo.MaxBy(audio, func(a, b youtube.Format) bool {
		return a.Bitrate > b.Bitrate
	})
	return &best
}

// codecFromMime returns the first codec named in a mime type such as
// `audio/webm; codecs="opus"`.
func codecFromMime(mime string) string {
	_, params, ok := strings.Cut(mime, "codecs=")
	if !ok {
		return ""
	}
	params = strings.Trim(params, `"' `)
	codec, _, _ := strings.Cut(params, ",")
	return strings.TrimSpace(codec)
}
