package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		warnSeen  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warning", false, true},
		{"error", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(tt.level, false, &buf)

			log.Debug("debug message")
			log.Warn("warn message")

			out := buf.String()
			if got := strings.Contains(out, "debug message"); got != tt.debugSeen {
				t.Errorf("debug logged = %v, want %v", got, tt.debugSeen)
			}
			if got := strings.Contains(out, "warn message"); got != tt.warnSeen {
				t.Errorf("warn logged = %v, want %v", got, tt.warnSeen)
			}
		})
	}
}

func TestLogger_JSONAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", true, &buf)

	log.WithComponent("orchestrator").
		WithBackend("invidious").
		WithInstance("https://yewtu.be").
		WithVideoID("abc123defgh").
		WithError(errors.New("boom")).
		Info("extraction attempt failed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}

	want := map[string]string{
		"component": "orchestrator",
		"backend":   "invidious",
		"instance":  "https://yewtu.be",
		"video_id":  "abc123defgh",
		"error":     "boom",
		"msg":       "extraction attempt failed",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %q", k, entry[k], v)
		}
	}
}

func TestFromContext(t *testing.T) {
	log := Discard()
	ctx := log.WithContext(context.Background())

	if got := FromContext(ctx); got != log {
		t.Error("FromContext did not return the attached logger")
	}
	if got := FromContext(context.Background()); got == nil {
		t.Error("FromContext returned nil for an empty context")
	}
}

func TestFromContextOr(t *testing.T) {
	fallback := Discard()
	if got := FromContextOr(context.Background(), fallback); got != fallback {
		t.Error("FromContextOr did not return the fallback for an empty context")
	}

	attached := Discard()
	if got := FromContextOr(attached.WithContext(context.Background()), fallback); got != attached {
		t.Error("FromContextOr ignored the attached logger")
	}
}
