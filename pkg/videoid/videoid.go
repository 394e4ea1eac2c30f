// Package videoid parses YouTube URLs into canonical video identifiers.
package videoid

import (
	"regexp"
	"strings"

	"github.com/samber/mo"

	"nextsoundwave/pkg/types"
)

// patterns are tried in order; the first match wins.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:https?://)?(?:www\.|m\.|music\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
}

// Parse extracts the video id from a YouTube URL.
// It returns mo.None for empty or unrecognised input; deciding whether that
// is an error is left to the caller.
func Parse(url string) mo.Option[types.VideoID] {
	url = strings.TrimSpace(url)
	if url == "" {
		return mo.None[types.VideoID]()
	}

	for _, re := range patterns {
		if m := re.FindStringSubmatch(url); len(m) > 1 {
			return mo.Some(types.VideoID(m[1]))
		}
	}
	return mo.None[types.VideoID]()
}

// IsValid reports whether url contains a recognisable video id.
func IsValid(url string) bool {
	return Parse(url).IsPresent()
}
