package engines

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/types"
)

func TestParseYTDLPOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   *types.EngineInfo
	}{
		{
			name: "top level url",
			output: `{"id":"abc123defgh","title":"Song","duration":215.4,"url":"https://cdn/a","acodec":"opus",
				"related_videos":[{"id":"zzzzzzzzzzz","title":"Next","duration":99},{"title":"no id"}]}`,
			want: &types.EngineInfo{
				ID: "abc123defgh", Title: "Song", Duration: 215, URL: "https://cdn/a", ACodec: "opus",
				Related: []types.RelatedItem{{ID: "zzzzzzzzzzz", Title: "Next", Duration: 99}},
			},
		},
		{
			name: "falls back to best audio-only format",
			output: `{"id":"abc123defgh","title":"Song","duration":10,"formats":[
				{"url":"https://cdn/low","acodec":"mp4a.40.5","vcodec":"none"},
				{"url":"https://cdn/high","acodec":"opus","vcodec":"none"},
				{"url":"https://cdn/video","acodec":"none","vcodec":"avc1"}]}`,
			want: &types.EngineInfo{
				ID: "abc123defgh", Title: "Song", Duration: 10, URL: "https://cdn/high", ACodec: "opus",
				Related: []types.RelatedItem{},
			},
		},
		{
			name:   "missing url",
			output: `{"id":"abc123defgh","title":"Song"}`,
			want: &types.EngineInfo{
				ID: "abc123defgh", Title: "Song",
				Related: []types.RelatedItem{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseYTDLPOutput([]byte(tt.output))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseYTDLPOutput() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseYTDLPOutput_InvalidJSON(t *testing.T) {
	if _, err := parseYTDLPOutput([]byte("ERROR: video unavailable")); err == nil {
		t.Fatal("expected error")
	}
}

func TestYTDLP_Fetch(t *testing.T) {
	e := NewYTDLP("", "bestaudio", 30, logging.Discard())

	var gotName string
	var gotArgs []string
	e.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte(`{"id":"abc123defgh","title":"Song","url":"https://cdn/a","acodec":"opus"}`), nil
	}

	info, err := e.Fetch(context.Background(), "abc123defgh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.URL != "https://cdn/a" {
		t.Errorf("URL = %q", info.URL)
	}

	if gotName != "yt-dlp" {
		t.Errorf("binary = %q", gotName)
	}
	wantArgs := []string{
		"-J", "--no-warnings", "-q", "--no-playlist",
		"-f", "bestaudio",
		"--socket-timeout", "30",
		"https://www.youtube.com/watch?v=abc123defgh",
	}
	if diff := cmp.Diff(wantArgs, gotArgs); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestYTDLP_FetchError(t *testing.T) {
	e := NewYTDLP("yt-dlp", "", 0, logging.Discard())
	boom := errors.New("exit status 1: ERROR: Private video")
	e.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, boom
	}

	if _, err := e.Fetch(context.Background(), "abc123defgh"); !errors.Is(err, boom) {
		t.Errorf("Fetch() error = %v, want wrapped %v", err, boom)
	}
}

func TestYTDLP_Available(t *testing.T) {
	e := NewYTDLP("yt-dlp", "", 0, logging.Discard())

	e.lookPath = func(string) (string, error) { return "/usr/bin/yt-dlp", nil }
	if !e.Available(context.Background()) {
		t.Error("Available() = false with binary present")
	}

	e.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	if e.Available(context.Background()) {
		t.Error("Available() = true with binary missing")
	}
}
