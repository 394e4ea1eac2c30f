package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/types"
)

// runFunc executes a command and returns its standard output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// YTDLP resolves videos by running the yt-dlp binary in JSON mode.
type YTDLP struct {
	path          string
	format        string
	socketTimeout int
	run           runFunc
	lookPath      func(string) (string, error)
	log           *logging.Logger
}

// NewYTDLP creates the engine. socketTimeout is passed to yt-dlp in seconds.
func NewYTDLP(path, format string, socketTimeout int, log *logging.Logger) *YTDLP {
	if path == "" {
		path = "yt-dlp"
	}
	return &YTDLP{
		path:          path,
		format:        format,
		socketTimeout: socketTimeout,
		run:           runCommand,
		lookPath:      exec.LookPath,
		log:           log.WithComponent("engine-ytdlp"),
	}
}

// Name returns the engine name.
func (e *YTDLP) Name() string {
	return "yt-dlp"
}

// Available reports whether the yt-dlp binary can be found.
func (e *YTDLP) Available(ctx context.Context) bool {
	_, err := e.lookPath(e.path)
	return err == nil
}

// Fetch runs yt-dlp for a single video.
func (e *YTDLP) Fetch(ctx context.Context, id types.VideoID) (*types.EngineInfo, error) {
	output, err := e.run(ctx, e.path, e.args(id)...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp error: %w", err)
	}
	return parseYTDLPOutput(output)
}

func (e *YTDLP) args(id types.VideoID) []string {
	args := []string{"-J", "--no-warnings", "-q", "--no-playlist"}
	if e.format != "" {
		args = append(args, "-f", e.format)
	}
	if e.socketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(e.socketTimeout))
	}
	return append(args, "https://www.youtube.com/watch?v="+id.String())
}

type ytdlpFormat struct {
	URL    string `json:"url"`
	ACodec string `json:"acodec"`
	VCodec string `json:"vcodec"`
}

func (f ytdlpFormat) isAudioOnly() bool {
	return f.URL != "" && f.ACodec != "" && f.ACodec != "none" && (f.VCodec == "" || f.VCodec == "none")
}

type ytdlpRelated struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

type ytdlpInfo struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Duration      float64        `json:"duration"`
	URL           string         `json:"url"`
	ACodec        string         `json:"acodec"`
	Formats       []ytdlpFormat  `json:"formats"`
	RelatedVideos []ytdlpRelated `json:"related_videos"`
}

func parseYTDLPOutput(output []byte) (*types.EngineInfo, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("json unmarshal error: %w", err)
	}

	link := strings.TrimSpace(info.URL)
	codec := info.ACodec
	// Without a top-level url, take the last audio-only format; yt-dlp lists
	// formats worst to best.
	if link == "" {
		for i := len(info.Formats) - 1; i >= 0; i-- {
			if f := info.Formats[i]; f.isAudioOnly() {
				link = f.URL
				codec = f.ACodec
				break
			}
		}
	}

	related := lo.Map(info.RelatedVideos, func(r ytdlpRelated, _ int) types.RelatedItem {
		return types.RelatedItem{ID: r.ID, Title: r.Title, Duration: int(r.Duration)}
	})

	return &types.EngineInfo{
		ID:       info.ID,
		Title:    info.Title,
		Duration: int(info.Duration),
		URL:      link,
		ACodec:   codec,
		Related:  lo.Filter(related, func(r types.RelatedItem, _ int) bool { return r.ID != "" }),
	}, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return nil, fmt.Errorf("%w: %s", err, msg)
			}
		}
		return nil, err
	}
	return out, nil
}
