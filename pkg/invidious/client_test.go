package invidious

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nextsoundwave/pkg/logging"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts Options) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewClient(server.URL, server.Client(), opts, logging.Discard())
}

func TestClient_Video_Success(t *testing.T) {
	payload := `{
		"videoId": "abc123defgh",
		"title": "Test Song",
		"lengthSeconds": 215,
		"adaptiveFormats": [
			{"url": "https://cdn/v.mp4", "type": "video/mp4; codecs=\"avc1\"", "itag": "137"},
			{"url": "https://cdn/a.webm", "type": "audio/webm; codecs=\"opus\"", "encoding": "opus", "itag": "251"}
		],
		"formatStreams": [],
		"recommendedVideos": [{"videoId": "zzzzzzzzzzz", "title": "Next", "lengthSeconds": 100}]
	}`

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/videos/abc123defgh" {
			t.Errorf("expected path /api/v1/videos/abc123defgh, got %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}, Options{})

	v, err := client.Video(context.Background(), "abc123defgh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &Video{
		VideoID:       "abc123defgh",
		Title:         "Test Song",
		LengthSeconds: 215,
		AdaptiveFormats: []Format{
			{URL: "https://cdn/v.mp4", Type: `video/mp4; codecs="avc1"`, Itag: "137"},
			{URL: "https://cdn/a.webm", Type: `audio/webm; codecs="opus"`, Encoding: "opus", Itag: "251"},
		},
		FormatStreams:     []Format{},
		RecommendedVideos: []Recommended{{VideoID: "zzzzzzzzzzz", Title: "Next", LengthSeconds: 100}},
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("Video() mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Video_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}, Options{})

	_, err := client.Video(context.Background(), "abc123defgh")
	if err == nil {
		t.Fatal("expected error for 429")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if statusErr.Code != http.StatusTooManyRequests || statusErr.Body != "slow down" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
}

func TestClient_Video_InvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}, Options{})

	if _, err := client.Video(context.Background(), "abc123defgh"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestClient_Video_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, Options{APITimeout: 50 * time.Millisecond})

	start := time.Now()
	if _, err := client.Video(context.Background(), "abc123defgh"); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestClient_Probe(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"ok", http.StatusOK, true},
		{"server error", http.StatusInternalServerError, false},
		{"forbidden", http.StatusForbidden, false},
		{"not found", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodHead {
					t.Errorf("expected HEAD, got %s", r.Method)
				}
				if r.URL.Path != "/api/v1/trending" {
					t.Errorf("expected /api/v1/trending, got %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}, Options{})

			if got := client.Probe(context.Background()); got != tt.want {
				t.Errorf("Probe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_Probe_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	client := NewClient(addr, nil, Options{ProbeTimeout: 200 * time.Millisecond}, logging.Discard())
	if client.Probe(context.Background()) {
		t.Error("Probe() = true for closed server")
	}
}

func TestClient_Search(t *testing.T) {
	items := []SearchItem{
		{Type: "video", VideoID: "aaaaaaaaaaa", Title: "One", LengthSeconds: 60,
			VideoThumbnails: []Thumbnail{{Quality: "default", URL: "/vi/aaaaaaaaaaa/default.jpg"}}},
		{Type: "channel", Title: "A channel"},
		{Type: "video", VideoID: "bbbbbbbbbbb", Title: "Two", LengthSeconds: 120},
		{Type: "video", VideoID: "ccccccccccc", Title: "Three", LengthSeconds: 180},
	}

	var baseURL string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search" {
			t.Errorf("expected /api/v1/search, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "lofi beats" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("type"); got != "video" {
			t.Errorf("type = %q", got)
		}
		json.NewEncoder(w).Encode(items)
	}, Options{})
	baseURL = client.Instance()

	got, err := client.Search(context.Background(), "lofi beats", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []SearchItem{
		{Type: "video", VideoID: "aaaaaaaaaaa", Title: "One", LengthSeconds: 60,
			VideoThumbnails: []Thumbnail{{Quality: "default", URL: baseURL + "/vi/aaaaaaaaaaa/default.jpg"}}},
		{Type: "video", VideoID: "bbbbbbbbbbb", Title: "Two", LengthSeconds: 120},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Search() mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_RateLimited(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"videoId":"abc123defgh"}`))
	}, Options{RateLimit: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := client.Video(ctx, "abc123defgh"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	// The bucket holds one token, so the second call cannot start before the deadline.
	if _, err := client.Video(ctx, "abc123defgh"); err == nil {
		t.Fatal("expected second call to be rate limited")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestFormat_IsAudio(t *testing.T) {
	if !(Format{Type: `audio/webm; codecs="opus"`}).IsAudio() {
		t.Error("audio/webm not recognised")
	}
	if (Format{Type: `video/mp4; codecs="avc1, mp4a"`}).IsAudio() {
		t.Error("muxed video stream treated as audio")
	}
}
