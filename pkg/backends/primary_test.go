package backends

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/types"
)

type fakeEngine struct {
	info      *types.EngineInfo
	err       error
	available bool
	delay     time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (e *fakeEngine) Name() string                       { return "fake" }
func (e *fakeEngine) Available(ctx context.Context) bool { return e.available }

func (e *fakeEngine) Fetch(ctx context.Context, id types.VideoID) (*types.EngineInfo, error) {
	e.calls.Add(1)
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	if e.info == nil {
		return nil, nil
	}
	info := *e.info
	return &info, nil
}

func newPrimary(e *fakeEngine, opts PrimaryOptions) *PrimaryBackend {
	return NewPrimaryBackend(e, opts, logging.Discard())
}

func TestPrimaryBackend_Extract(t *testing.T) {
	e := &fakeEngine{info: &types.EngineInfo{
		ID: "abc123defgh", Title: "Song", Duration: 215, URL: "https://cdn/a", ACodec: "opus",
	}}

	got, err := newPrimary(e, PrimaryOptions{}).Extract(context.Background(), "https://youtu.be/abc123defgh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := types.Track{
		ID:               "abc123defgh",
		Title:            "Song",
		Duration:         215,
		AudioURL:         "https://cdn/a",
		Codec:            "opus",
		Backend:          types.BackendPrimary,
		EmbedURL:         "https://www.youtube.com/embed/abc123defgh",
		FallbackEmbedURL: "https://yewtu.be/embed/abc123defgh",
		Related:          []types.RelatedItem{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestPrimaryBackend_Defaults(t *testing.T) {
	related := make([]types.RelatedItem, 15)
	for i := range related {
		related[i] = types.RelatedItem{ID: fmt.Sprintf("rel%08d", i), Duration: i}
	}
	e := &fakeEngine{info: &types.EngineInfo{
		ID: "abc123defgh", URL: "https://cdn/a", ACodec: "none", Related: related,
	}}

	got, err := newPrimary(e, PrimaryOptions{
		Embed: EmbedHosts{Primary: "yt.example", Fallback: "inv.example"},
	}).Extract(context.Background(), "youtube.com/watch?v=abc123defgh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Title != types.DefaultTitle {
		t.Errorf("Title = %q, want %q", got.Title, types.DefaultTitle)
	}
	if got.Codec != types.DefaultCodec {
		t.Errorf("Codec = %q, want %q", got.Codec, types.DefaultCodec)
	}
	if len(got.Related) != types.MaxRelated {
		t.Fatalf("len(Related) = %d, want %d", len(got.Related), types.MaxRelated)
	}
	for i, r := range got.Related {
		if r.ID != related[i].ID || r.Title != types.DefaultRelatedTitle || r.Duration != i {
			t.Errorf("Related[%d] = %+v", i, r)
		}
	}
	if got.EmbedURL != "https://yt.example/embed/abc123defgh" || got.FallbackEmbedURL != "https://inv.example/embed/abc123defgh" {
		t.Errorf("embed urls = %q, %q", got.EmbedURL, got.FallbackEmbedURL)
	}
}

func TestPrimaryBackend_Errors(t *testing.T) {
	tests := []struct {
		name    string
		engine  *fakeEngine
		url     string
		wantErr error
		calls   int32
	}{
		{
			name:    "invalid url",
			engine:  &fakeEngine{},
			url:     "https://example.com",
			wantErr: types.ErrInvalidInput,
			calls:   0,
		},
		{
			name:    "engine error",
			engine:  &fakeEngine{err: errors.New("sign in to confirm you're not a bot")},
			url:     "https://youtu.be/abc123defgh",
			wantErr: types.ErrExtractionFailed,
			calls:   1,
		},
		{
			name:    "no info",
			engine:  &fakeEngine{},
			url:     "https://youtu.be/abc123defgh",
			wantErr: types.ErrExtractionFailed,
			calls:   1,
		},
		{
			name:    "missing url",
			engine:  &fakeEngine{info: &types.EngineInfo{ID: "abc123defgh", Title: "x"}},
			url:     "https://youtu.be/abc123defgh",
			wantErr: types.ErrExtractionFailed,
			calls:   1,
		},
		{
			name:    "missing id",
			engine:  &fakeEngine{info: &types.EngineInfo{URL: "https://cdn/a"}},
			url:     "https://youtu.be/abc123defgh",
			wantErr: types.ErrExtractionFailed,
			calls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newPrimary(tt.engine, PrimaryOptions{}).Extract(context.Background(), tt.url)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Extract() error = %v, want %v", err, tt.wantErr)
			}
			if got := tt.engine.calls.Load(); got != tt.calls {
				t.Errorf("engine calls = %d, want %d", got, tt.calls)
			}
		})
	}
}

func TestPrimaryBackend_Timeout(t *testing.T) {
	e := &fakeEngine{delay: time.Second, info: &types.EngineInfo{ID: "abc123defgh", URL: "u"}}

	start := time.Now()
	_, err := newPrimary(e, PrimaryOptions{Timeout: 50 * time.Millisecond}).
		Extract(context.Background(), "https://youtu.be/abc123defgh")
	if !errors.Is(err, types.ErrExtractionFailed) {
		t.Fatalf("Extract() error = %v, want extraction failure", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestPrimaryBackend_ConcurrencyCap(t *testing.T) {
	e := &fakeEngine{delay: 20 * time.Millisecond, info: &types.EngineInfo{ID: "abc123defgh", URL: "u"}}
	b := newPrimary(e, PrimaryOptions{MaxConcurrent: 2})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Extract(context.Background(), "https://youtu.be/abc123defgh"); err != nil {
				t.Errorf("Extract() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if peak := e.peak.Load(); peak > 2 {
		t.Errorf("peak concurrent engine calls = %d, want <= 2", peak)
	}
	if calls := e.calls.Load(); calls != 8 {
		t.Errorf("engine calls = %d, want 8", calls)
	}
}

func TestPrimaryBackend_IsAvailable(t *testing.T) {
	if newPrimary(&fakeEngine{available: false}, PrimaryOptions{}).IsAvailable(context.Background()) {
		t.Error("IsAvailable() = true for unavailable engine")
	}
	if !newPrimary(&fakeEngine{available: true}, PrimaryOptions{}).IsAvailable(context.Background()) {
		t.Error("IsAvailable() = false for available engine")
	}
}
