package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const base = "https://shop.example/admin/api/2021-04/customers.json"

func link(token, rel string) string {
	return fmt.Sprintf(`<%s?limit=250&page_info=%s>; rel="%s"`, base, token, rel)
}

func TestParseLinkHeader(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []Link
	}{
		{
			name:   "next only",
			values: []string{link("abc", "next")},
			want:   []Link{{URL: base + "?limit=250&page_info=abc", Rel: []string{"next"}}},
		},
		{
			name:   "previous and next",
			values: []string{link("p1", "previous") + ", " + link("n1", "next")},
			want: []Link{
				{URL: base + "?limit=250&page_info=p1", Rel: []string{"previous"}},
				{URL: base + "?limit=250&page_info=n1", Rel: []string{"next"}},
			},
		},
		{
			name:   "multiple header values",
			values: []string{link("p1", "previous"), link("n1", "next")},
			want: []Link{
				{URL: base + "?limit=250&page_info=p1", Rel: []string{"previous"}},
				{URL: base + "?limit=250&page_info=n1", Rel: []string{"next"}},
			},
		},
		{
			name:   "comma inside quoted param ends the entry",
			values: []string{`<https://a.example/x>; title="x, y"; REL=Next Last`},
			want:   []Link{{URL: "https://a.example/x", Rel: nil}},
		},
		{
			name:   "malformed entry skipped",
			values: []string{`garbage; rel="next", ` + link("n1", "next")},
			want:   []Link{{URL: base + "?limit=250&page_info=n1", Rel: []string{"next"}}},
		},
		{
			name:   "empty",
			values: []string{""},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLinkHeader(tt.values...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseLinkHeader mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseLinkHeader_MultiRel(t *testing.T) {
	links := ParseLinkHeader(`<https://a.example/x?page_info=z>; REL="Next Last"`)
	if len(links) != 1 || !links[0].HasRel("next") || !links[0].HasRel("last") {
		t.Fatalf("links = %+v", links)
	}
}

func TestNextToken(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   Token
		ok     bool
	}{
		{"next first", []string{link("n1", "next") + ", " + link("p1", "previous")}, "n1", true},
		{"next second", []string{link("p1", "previous") + ", " + link("n1", "next")}, "n1", true},
		{"previous only", []string{link("p1", "previous")}, "", false},
		{"no header", nil, "", false},
		{"next without token", []string{`<https://a.example/x?limit=5>; rel="next"`}, "", false},
		{"nextish relation ignored", []string{link("x", "next-archive")}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextToken(tt.values...)
			if got != tt.want || ok != tt.ok {
				t.Errorf("NextToken() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

// scriptedFetcher serves pages keyed by request token.
type scriptedFetcher struct {
	pages    map[Token]string
	links    map[Token]string
	requests []Token
	failOn   Token
}

func (s *scriptedFetcher) FetchPage(_ context.Context, token Token) (*Response, error) {
	s.requests = append(s.requests, token)
	if s.failOn != "" && token == s.failOn {
		return nil, errors.New("status 500")
	}
	h := http.Header{}
	if l, ok := s.links[token]; ok {
		h.Set("Link", l)
	}
	return &Response{Body: []byte(s.pages[token]), Header: h}, nil
}

func TestPager_FollowsNext(t *testing.T) {
	f := &scriptedFetcher{
		pages: map[Token]string{"": "p1", "t2": "p2", "t3": "p3"},
		links: map[Token]string{
			"":   link("t2", "next"),
			"t2": link("", "previous") + ", " + link("t3", "next"),
			"t3": link("t2", "previous"),
		},
	}

	bodies, err := NewPager(f).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var got []string
	for _, b := range bodies {
		got = append(got, string(b))
	}
	if diff := cmp.Diff([]string{"p1", "p2", "p3"}, got); diff != "" {
		t.Errorf("bodies mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Token{"", "t2", "t3"}, f.requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestPager_PreviousOnlyStopsAfterOnePage(t *testing.T) {
	f := &scriptedFetcher{
		pages: map[Token]string{"": "p1"},
		links: map[Token]string{"": link("zzz", "previous")},
	}

	bodies, err := NewPager(f).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(bodies) != 1 || len(f.requests) != 1 {
		t.Errorf("pages = %d, requests = %d; want 1, 1", len(bodies), len(f.requests))
	}
}

func TestPager_NoLinkHeader(t *testing.T) {
	f := &scriptedFetcher{pages: map[Token]string{"": "only"}}

	bodies, err := NewPager(f).Collect(context.Background())
	if err != nil || len(bodies) != 1 {
		t.Fatalf("Collect = %d pages, %v", len(bodies), err)
	}
}

func TestPager_TokenUnchangedStops(t *testing.T) {
	f := &scriptedFetcher{
		pages: map[Token]string{"": "p1", "t2": "p2"},
		links: map[Token]string{"": link("t2", "next"), "t2": link("t2", "next")},
	}

	bodies, err := NewPager(f).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(bodies) != 2 || len(f.requests) != 2 {
		t.Errorf("pages = %d, requests = %d; want 2, 2", len(bodies), len(f.requests))
	}
}

func TestPager_TokenCycleStops(t *testing.T) {
	f := &scriptedFetcher{
		pages: map[Token]string{"": "p1", "a": "p2", "b": "p3"},
		links: map[Token]string{"": link("a", "next"), "a": link("b", "next"), "b": link("a", "next")},
	}

	bodies, err := NewPager(f).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(bodies) != 3 {
		t.Errorf("pages = %d, want 3", len(bodies))
	}
}

func TestPager_ErrorStops(t *testing.T) {
	f := &scriptedFetcher{
		pages:  map[Token]string{"": "p1"},
		links:  map[Token]string{"": link("t2", "next")},
		failOn: "t2",
	}

	var pages int
	var gotErr error
	for _, err := range NewPager(f).Pages(context.Background()) {
		if err != nil {
			gotErr = err
			continue
		}
		pages++
	}
	if pages != 1 || gotErr == nil {
		t.Fatalf("pages = %d, err = %v", pages, gotErr)
	}
	if len(f.requests) != 2 {
		t.Errorf("requests = %d, want 2 (no retry)", len(f.requests))
	}
}

func TestPager_ConsumerBreak(t *testing.T) {
	f := &scriptedFetcher{
		pages: map[Token]string{"": "p1", "t2": "p2"},
		links: map[Token]string{"": link("t2", "next")},
	}

	for range NewPager(f).Pages(context.Background()) {
		break
	}
	if len(f.requests) != 1 {
		t.Errorf("requests = %d, want 1 (lazy)", len(f.requests))
	}
}

func TestPager_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &scriptedFetcher{pages: map[Token]string{"": "p1"}}
	_, err := NewPager(f).Collect(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(f.requests) != 0 {
		t.Errorf("requests = %d, want 0", len(f.requests))
	}
}
