// Package types defines core domain types used throughout the application.
package types

import (
	"errors"
	"strings"
)

// VideoID is the 11-character canonical key of a YouTube video.
type VideoID string

// String returns the id as a plain string.
func (id VideoID) String() string {
	return string(id)
}

// BackendKind identifies which extraction strategy produced a result.
type BackendKind string

const (
	BackendPrimary  BackendKind = "primary"
	BackendFallback BackendKind = "fallback"
)

// ParseBackendKind maps user-supplied backend names onto a BackendKind.
// Engine family names are accepted as aliases.
func ParseBackendKind(s string) (BackendKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary", "yt-dlp", "ytdlp", "kkdai":
		return BackendPrimary, true
	case "fallback", "invidious":
		return BackendFallback, true
	default:
		return "", false
	}
}

const (
	DefaultTitle        = "Unknown Title"
	DefaultRelatedTitle = "Unknown"
	DefaultCodec        = "opus"

	// MaxRelated caps the number of related items attached to a track.
	MaxRelated = 10
)

// Sentinel errors classifying extraction failures.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrExtractionFailed = errors.New("extraction failed")
)

// RelatedItem is a related video suggestion.
type RelatedItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
}

// Track is the resolved, playable representation of a video.
// Tracks are passed by value and never mutated after construction.
type Track struct {
	ID               VideoID
	Title            string
	Duration         int
	AudioURL         string
	Codec            string
	Backend          BackendKind
	EmbedURL         string
	FallbackEmbedURL string
	Related          []RelatedItem
}

// Clone returns a copy of the track that shares no memory with t.
func (t Track) Clone() Track {
	c := t
	if t.Related != nil {
		c.Related = make([]RelatedItem, len(t.Related))
		copy(c.Related, t.Related)
	}
	return c
}

// EngineInfo is the raw result of a primary engine lookup, before defaults
// and validation are applied.
type EngineInfo struct {
	ID       string
	Title    string
	Duration int
	URL      string
	ACodec   string
	Related  []RelatedItem
}

// FailureKind classifies a failed extraction.
type FailureKind string

const (
	FailureInvalidInput FailureKind = "invalid_input"
	FailureExtraction   FailureKind = "extraction_failed"
	FailureNoBackend    FailureKind = "no_backend"
)

// Failure describes why an extraction did not produce a track.
type Failure struct {
	Kind    FailureKind
	Message string
}

// Outcome is the result of an orchestrated extraction: either a track and the
// backend that produced it, or a failure. Never both.
type Outcome struct {
	track   *Track
	backend BackendKind
	failure *Failure
}

// Success builds a successful outcome.
func Success(track Track, backend BackendKind) Outcome {
	return Outcome{track: &track, backend: backend}
}

// Failed builds a failed outcome.
func Failed(kind FailureKind, message string) Outcome {
	return Outcome{failure: &Failure{Kind: kind, Message: message}}
}

// OK reports whether the outcome carries a track.
func (o Outcome) OK() bool {
	return o.track != nil
}

// Track returns the resolved track and true on success.
func (o Outcome) Track() (Track, bool) {
	if o.track == nil {
		return Track{}, false
	}
	return o.track.Clone(), true
}

// Backend returns the backend that produced the track, empty on failure.
func (o Outcome) Backend() BackendKind {
	return o.backend
}

// Failure returns the failure and true when the outcome is not a success.
func (o Outcome) Failure() (Failure, bool) {
	if o.failure == nil {
		return Failure{}, false
	}
	return *o.failure, true
}

// HealthStatus is the overall extraction health.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// BackendHealth reports the availability of one backend.
type BackendHealth struct {
	Name      string `json:"backend"`
	Available bool   `json:"available"`
}

// HealthReport aggregates backend availability.
type HealthReport struct {
	Status      HealthStatus  `json:"status"`
	Primary     BackendHealth `json:"primary"`
	Fallback    BackendHealth `json:"fallback"`
	Recommended BackendKind   `json:"recommended_backend"`
}

// SearchResult is a single search hit.
type SearchResult struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Duration  int    `json:"duration"`
	Thumbnail string `json:"thumbnail,omitempty"`
}
