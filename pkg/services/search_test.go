package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nextsoundwave/pkg/cache"
	"nextsoundwave/pkg/interfaces"
	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/types"
)

type fakeSearcher struct {
	name    string
	results []types.SearchResult
	err     error
	calls   int
	gotArgs []any
}

func (s *fakeSearcher) Name() string { return s.name }

func (s *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	s.calls++
	s.gotArgs = []any{query, limit}
	return s.results, s.err
}

func results(ids ...string) []types.SearchResult {
	out := make([]types.SearchResult, len(ids))
	for i, id := range ids {
		out[i] = types.SearchResult{ID: id, Title: "t" + id}
	}
	return out
}

func TestSearchService_FirstProviderWins(t *testing.T) {
	first := &fakeSearcher{name: "youtube", results: results("a", "b")}
	second := &fakeSearcher{name: "invidious", results: results("c")}
	svc := NewSearchService([]interfaces.Searcher{first, second}, nil, time.Minute, logging.Discard())

	got, err := svc.Search(context.Background(), "  lofi  ", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(results("a", "b"), got); diff != "" {
		t.Errorf("Search() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"lofi", DefaultSearchLimit}, first.gotArgs); diff != "" {
		t.Errorf("provider args (-want +got):\n%s", diff)
	}
	if second.calls != 0 {
		t.Error("second provider called after a hit")
	}
}

func TestSearchService_FallsThrough(t *testing.T) {
	tests := []struct {
		name    string
		first   *fakeSearcher
		second  *fakeSearcher
		want    []types.SearchResult
		wantErr bool
	}{
		{
			name:   "error then results",
			first:  &fakeSearcher{name: "youtube", err: errors.New("blocked")},
			second: &fakeSearcher{name: "invidious", results: results("c")},
			want:   results("c"),
		},
		{
			name:   "empty then results",
			first:  &fakeSearcher{name: "youtube"},
			second: &fakeSearcher{name: "invidious", results: results("c")},
			want:   results("c"),
		},
		{
			name:   "empty and error",
			first:  &fakeSearcher{name: "youtube"},
			second: &fakeSearcher{name: "invidious", err: errors.New("down")},
			want:   []types.SearchResult{},
		},
		{
			name:    "all errors",
			first:   &fakeSearcher{name: "youtube", err: errors.New("blocked")},
			second:  &fakeSearcher{name: "invidious", err: errors.New("down")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSearchService([]interfaces.Searcher{tt.first, tt.second}, nil, time.Minute, logging.Discard())

			got, err := svc.Search(context.Background(), "lofi", 10)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Search() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Search() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearchService_QueryTooShort(t *testing.T) {
	p := &fakeSearcher{name: "youtube", results: results("a")}
	svc := NewSearchService([]interfaces.Searcher{p}, nil, time.Minute, logging.Discard())

	for _, q := range []string{"", " ", "a", " a "} {
		_, err := svc.Search(context.Background(), q, 10)
		if !errors.Is(err, types.ErrInvalidInput) {
			t.Errorf("Search(%q) error = %v, want invalid input", q, err)
		}
	}
	if p.calls != 0 {
		t.Error("provider called for a short query")
	}
}

func TestSearchService_Cached(t *testing.T) {
	p := &fakeSearcher{name: "youtube", results: results("a", "b", "c")}
	svc := NewSearchService([]interfaces.Searcher{p}, cache.NewMemory(), time.Minute, logging.Discard())

	for range 3 {
		if _, err := svc.Search(context.Background(), "Lofi", 2); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	got, _ := svc.Search(context.Background(), "lofi", 2)

	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls)
	}
	if diff := cmp.Diff(results("a", "b"), got); diff != "" {
		t.Errorf("cached results should respect limit (-want +got):\n%s", diff)
	}
}

func TestClampLimit(t *testing.T) {
	tests := map[int]int{-5: DefaultSearchLimit, 0: DefaultSearchLimit, 1: 1, 20: 20, 50: 50, 51: 50, 1000: 50}
	for in, want := range tests {
		if got := ClampLimit(in); got != want {
			t.Errorf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
