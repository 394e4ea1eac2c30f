// Package urlutil provides URL helpers for service instances and embed links.
package urlutil

import (
	"net/url"
	"strings"
)

// NormalizeInstance turns an instance reference into scheme://host[/path]
// without a trailing slash. Bare hosts are assumed to be https.
func NormalizeInstance(instance string) string {
	instance = strings.TrimSpace(instance)
	if instance == "" {
		return ""
	}
	if !strings.HasPrefix(instance, "http://") && !strings.HasPrefix(instance, "https://") {
		instance = "https://" + instance
	}
	return strings.TrimRight(instance, "/")
}

// Join appends path segments to an instance base URL. Segments are escaped,
// the base is kept as written.
func Join(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(strings.Trim(s, "/")))
	}
	return b.String()
}

// EmbedURL builds the iframe embed URL for a video on the given host.
// host may be a bare hostname or a full base URL.
func EmbedURL(host, videoID string) string {
	return Join(NormalizeInstance(host), "embed", videoID)
}
