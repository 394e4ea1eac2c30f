// Package invidious provides a client for the read-only Invidious video API.
package invidious

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"nextsoundwave/pkg/interfaces"
	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/urlutil"
)

// Default timeouts for API calls and liveness probes.
const (
	DefaultAPITimeout   = 10 * time.Second
	DefaultProbeTimeout = 5 * time.Second
)

// maxErrorBody limits how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// Format is one entry of adaptiveFormats or formatStreams.
type Format struct {
	URL       string `json:"url"`
	Type      string `json:"type"`
	Encoding  string `json:"encoding"`
	Container string `json:"container"`
	Itag      string `json:"itag"`
}

// IsAudio reports whether the format carries audio only.
func (f Format) IsAudio() bool {
	return strings.HasPrefix(f.Type, "audio/")
}

// Recommended is a related video suggestion.
type Recommended struct {
	VideoID       string `json:"videoId"`
	Title         string `json:"title"`
	LengthSeconds int    `json:"lengthSeconds"`
}

// Video is the subset of /api/v1/videos/{id} the application uses.
type Video struct {
	VideoID           string        `json:"videoId"`
	Title             string        `json:"title"`
	LengthSeconds     int           `json:"lengthSeconds"`
	AdaptiveFormats   []Format      `json:"adaptiveFormats"`
	FormatStreams     []Format      `json:"formatStreams"`
	RecommendedVideos []Recommended `json:"recommendedVideos"`
}

// Thumbnail is an image variant of a video.
type Thumbnail struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// SearchItem is one entry of /api/v1/search.
type SearchItem struct {
	Type            string      `json:"type"`
	VideoID         string      `json:"videoId"`
	Title           string      `json:"title"`
	LengthSeconds   int         `json:"lengthSeconds"`
	VideoThumbnails []Thumbnail `json:"videoThumbnails"`
}

// Options tunes a Client.
type Options struct {
	APITimeout   time.Duration
	ProbeTimeout time.Duration
	// RateLimit caps outbound requests per second to this instance.
	// Zero or negative disables limiting.
	RateLimit float64
}

// Client talks to a single Invidious instance.
type Client struct {
	baseURL      string
	apiTimeout   time.Duration
	probeTimeout time.Duration
	httpClient   interfaces.HTTPClient
	limiter      *rate.Limiter
	log          *logging.Logger
}

// NewClient creates a client bound to instance.
func NewClient(instance string, httpClient interfaces.HTTPClient, opts Options, log *logging.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.APITimeout <= 0 {
		opts.APITimeout = DefaultAPITimeout
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}

	limit := rate.Inf
	burst := 1
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
		burst = max(1, int(opts.RateLimit))
	}

	base := urlutil.NormalizeInstance(instance)
	return &Client{
		baseURL:      base,
		apiTimeout:   opts.APITimeout,
		probeTimeout: opts.ProbeTimeout,
		httpClient:   httpClient,
		limiter:      rate.NewLimiter(limit, burst),
		log:          log.WithComponent("invidious").WithInstance(base),
	}
}

// Instance returns the base URL the client is bound to.
func (c *Client) Instance() string {
	return c.baseURL
}

// Video fetches metadata and stream formats for a video.
func (c *Client) Video(ctx context.Context, id string) (*Video, error) {
	var v Video
	if err := c.getJSON(ctx, urlutil.Join(c.baseURL, "api", "v1", "videos", id), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Search runs a video search on the instance. Non-video items are dropped and
// at most limit results are returned.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchItem, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "video")
	endpoint := urlutil.Join(c.baseURL, "api", "v1", "search") + "?" + q.Encode()

	var items []SearchItem
	if err := c.getJSON(ctx, endpoint, &items); err != nil {
		return nil, err
	}

	out := make([]SearchItem, 0, len(items))
	for _, it := range items {
		if it.Type != "" && it.Type != "video" {
			continue
		}
		if it.VideoID == "" {
			continue
		}
		for i := range it.VideoThumbnails {
			if strings.HasPrefix(it.VideoThumbnails[i].URL, "/") {
				it.VideoThumbnails[i].URL = c.baseURL + it.VideoThumbnails[i].URL
			}
		}
		out = append(out, it)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Probe reports whether the instance answers HEAD /api/v1/trending with 200
// within the probe timeout. Any error counts as unreachable.
func (c *Client) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, urlutil.Join(c.baseURL, "api", "v1", "trending"), nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("probe failed", "error", err)
		return false
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.apiTimeout)
	defer cancel()

	c.log.Debug("calling invidious API", "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// StatusError is returned when the instance answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "invidious returned status " + strconv.Itoa(e.Code)
	}
	return fmt.Sprintf("invidious returned status %d: %s", e.Code, e.Body)
}
