package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"cinereads/config"
)

const hailMaryHits = `{"hits":[
	{"document":{"id":"9999","title":"The Martian","author_names":["Andy Weir"],"rating":4.4,"users_count":90000,"slug":"the-martian"}},
	{"document":{"id":"12345","title":"Project Hail Mary","author_names":["Andy Weir"],"rating":4.5,"ratings_count":1200,"users_count":50000,
		"image":{"url":"https://img.hardcover.app/phm.jpg"},"slug":"project-hail-mary","release_year":2021,"pages":476,
		"genres":["Science Fiction","Adventure"],"isbns":["9780593135204"],"description":"A lone astronaut."}}
]}`

func newTestHardcoverClient(t *testing.T, handler http.HandlerFunc) (*HardcoverClient, *int32) {
	t.Helper()
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Hardcover.APIKey = "hc-test"
	cfg.Hardcover.APIURL = srv.URL
	cfg.Hardcover.RequestsPerMinute = 60000
	client := NewHardcoverClient(cfg)
	client.backoff = func(int, bool) time.Duration { return 0 }
	return client, &requests
}

func searchBody(results any) string {
	b, _ := json.Marshal(map[string]any{"data": map[string]any{"search": map[string]any{"results": results}}})
	return string(b)
}

func TestHardcoverLookupFound(t *testing.T) {
	var gotQuery string
	client, requests := newTestHardcoverClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer hc-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		var req graphQLRequest
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		gotQuery, _ = req.Variables["searchQuery"].(string)
		// results 以JSON字符串形式返回
		io.WriteString(w, searchBody(hailMaryHits))
	})

	meta, err := client.Lookup(context.Background(), "Project Hail Mary", "Andy Weir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata")
	}
	if atomic.LoadInt32(requests) != 1 || gotQuery != "Project Hail Mary Andy Weir" {
		t.Fatalf("expected a single title+author search, got %d requests, query %q", *requests, gotQuery)
	}

	if meta.Title != "Project Hail Mary" || meta.Author != "Andy Weir" {
		t.Fatalf("picked the wrong book: %+v", meta)
	}
	if meta.CanonicalURL == nil || *meta.CanonicalURL != "https://hardcover.app/books/project-hail-mary" {
		t.Fatalf("unexpected url %v", meta.CanonicalURL)
	}
	if meta.CoverURL == nil || *meta.CoverURL != "https://img.hardcover.app/phm.jpg" {
		t.Fatalf("unexpected cover %v", meta.CoverURL)
	}
	if meta.HardcoverID == nil || *meta.HardcoverID != 12345 {
		t.Fatalf("unexpected id %v", meta.HardcoverID)
	}
	if meta.ISBN == nil || *meta.ISBN != "9780593135204" || meta.PublicationYear == nil || *meta.PublicationYear != 2021 {
		t.Fatalf("unexpected isbn/year %+v", meta)
	}
	if meta.Rating == nil || *meta.Rating != 4.5 || len(meta.Genres) != 2 {
		t.Fatalf("unexpected rating/genres %+v", meta)
	}
}

func TestHardcoverLookupFallsBackToNextStrategy(t *testing.T) {
	var queries []string
	client, _ := newTestHardcoverClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		q, _ := req.Variables["searchQuery"].(string)
		queries = append(queries, q)

		if len(queries) == 1 {
			io.WriteString(w, searchBody(map[string]any{"hits": []any{
				map[string]any{"document": map[string]any{"id": 1, "title": "Cooking for Beginners", "author_names": []string{"Someone"}}},
			}}))
			return
		}
		// results 以对象形式返回
		io.WriteString(w, searchBody(map[string]any{"hits": []any{
			map[string]any{"document": map[string]any{"id": 2, "title": "The Left Hand of Darkness", "author_names": []string{"Ursula K. Le Guin"}, "slug": "lhod"}},
		}}))
	})

	meta, err := client.Lookup(context.Background(), "The Left Hand of Darkness", "Ursula K. Le Guin")
	if err != nil || meta == nil {
		t.Fatalf("expected a match, got %+v err=%v", meta, err)
	}
	if len(queries) != 2 || queries[1] != "The Left Hand of Darkness" {
		t.Fatalf("unexpected strategy order %q", queries)
	}
	if meta.HardcoverID == nil || *meta.HardcoverID != 2 {
		t.Fatalf("numeric id not parsed: %+v", meta.HardcoverID)
	}
}

func TestHardcoverLookupNotFound(t *testing.T) {
	client, requests := newTestHardcoverClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, searchBody(`{"hits":[]}`))
	})

	meta, err := client.Lookup(context.Background(), "The Name of the Wind", "Patrick Rothfuss")
	if err != nil || meta != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", meta, err)
	}
	want := int32(len(searchStrategies("The Name of the Wind", "Patrick Rothfuss")))
	if atomic.LoadInt32(requests) != want {
		t.Fatalf("expected %d searches, got %d", want, atomic.LoadInt32(requests))
	}
}

func TestHardcoverLookupAuthFailureIsNotRetried(t *testing.T) {
	client, requests := newTestHardcoverClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Lookup(context.Background(), "Dune", "Frank Herbert")
	var cerr *CatalogError
	if !errors.As(err, &cerr) || !errors.Is(err, ErrUpstreamAuth) {
		t.Fatalf("expected CatalogError wrapping ErrUpstreamAuth, got %v", err)
	}
	if atomic.LoadInt32(requests) != 1 {
		t.Fatalf("auth failures must not be retried, got %d requests", atomic.LoadInt32(requests))
	}
	if client.Configured() {
		t.Fatal("rejected key must be reported as unconfigured")
	}
}

func TestHardcoverLookupRetriesRateLimit(t *testing.T) {
	var calls int32
	client, requests := newTestHardcoverClient(t, func(w http.ResponseWriter, r *http.Request) {
		// 前两次返回429
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, searchBody(hailMaryHits))
	})

	meta, err := client.Lookup(context.Background(), "Project Hail Mary", "Andy Weir")
	if err != nil || meta == nil {
		t.Fatalf("expected a match after retries, got %+v err=%v", meta, err)
	}
	if atomic.LoadInt32(requests) != 3 {
		t.Fatalf("expected 3 requests, got %d", atomic.LoadInt32(requests))
	}
}

func TestHardcoverLookupGivesUpAfterRetries(t *testing.T) {
	client, requests := newTestHardcoverClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Lookup(context.Background(), "Dune", "Frank Herbert")
	var se *statusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 status error, got %v", err)
	}
	if atomic.LoadInt32(requests) != int32(config.Default().Hardcover.RetryAttempts) {
		t.Fatalf("expected %d attempts, got %d", config.Default().Hardcover.RetryAttempts, atomic.LoadInt32(requests))
	}
}

func TestHardcoverLookupServerErrorIsNotRetried(t *testing.T) {
	client, requests := newTestHardcoverClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Lookup(context.Background(), "Dune", "Frank Herbert")
	var se *statusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("expected status error, got %v", err)
	}
	if atomic.LoadInt32(requests) != 1 {
		t.Fatalf("expected one request, got %d", atomic.LoadInt32(requests))
	}
}

func TestHardcoverLookupSearchError(t *testing.T) {
	client, _ := newTestHardcoverClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"search":{"results":null,"error":"index unavailable"}}}`)
	})
	if _, err := client.Lookup(context.Background(), "Dune", ""); err == nil {
		t.Fatal("expected search error to surface as CatalogError")
	}
}

func TestHardcoverDisabledAndUnconfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Hardcover.Enabled = false
	cfg.Hardcover.APIKey = "hc-test"
	meta, err := NewHardcoverClient(cfg).Lookup(context.Background(), "Dune", "")
	if meta != nil || err != nil {
		t.Fatalf("disabled integration returns nil, nil; got %+v, %v", meta, err)
	}

	cfg = config.Default()
	cfg.Hardcover.APIKey = "eyJhbGciOi..."
	client := NewHardcoverClient(cfg)
	if client.Configured() {
		t.Fatal("truncated key must not count as configured")
	}
	if _, err := client.Lookup(context.Background(), "Dune", ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestScoreMatch(t *testing.T) {
	rating := 4.0
	users := 5000
	tests := []struct {
		name   string
		doc    searchDocument
		title  string
		author string
		want   float64
	}{
		{name: "exact title", doc: searchDocument{Title: "Dune"}, title: "dune", want: 100},
		{name: "exact title with author", doc: searchDocument{Title: "Dune", AuthorNames: []string{"Frank Herbert"}}, title: "Dune", author: "Frank Herbert", want: 120},
		{name: "author mismatch penalty", doc: searchDocument{Title: "Dune", AuthorNames: []string{"Someone Else"}}, title: "Dune", author: "Frank Herbert", want: 70},
		{name: "title contains query", doc: searchDocument{Title: "Dune Messiah"}, title: "Dune", want: 90},
		{name: "query contains title", doc: searchDocument{Title: "Dune"}, title: "Dune: Deluxe Edition", want: 85},
		{name: "word overlap", doc: searchDocument{Title: "Children of Dune Saga"}, title: "Dune Children Tales", want: 0.5 * 80},
		{name: "popularity bonus", doc: searchDocument{Title: "Dune", Rating: &rating, UsersCount: &users}, title: "Dune", want: 100 + 4 + 3},
		{name: "no title", doc: searchDocument{}, title: "Dune", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreMatch(&tt.doc, tt.title, tt.author)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("scoreMatch = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBestMatchThreshold(t *testing.T) {
	rating := 4.5
	docs := []searchDocument{{Title: "Completely Unrelated", Rating: &rating}}
	if bestMatch(docs, "Dune", "") != nil {
		t.Fatal("popularity alone must not pass the threshold")
	}

	docs = []searchDocument{{Title: "Dune Messiah"}, {Title: "Dune"}}
	if got := bestMatch(docs, "Dune", ""); got == nil || got.Title != "Dune" {
		t.Fatalf("expected exact title to win, got %+v", got)
	}

	docs = []searchDocument{{Title: "Dune", Slug: "first"}, {Title: "Dune", Slug: "second"}}
	if got := bestMatch(docs, "Dune", ""); got.Slug != "first" {
		t.Fatalf("ties keep search order, got %s", got.Slug)
	}
}

func TestSearchStrategies(t *testing.T) {
	got := searchStrategies("The Left Hand of Darkness", "Ursula K. Le Guin")
	want := []string{
		"The Left Hand of Darkness Ursula K. Le Guin",
		"The Left Hand of Darkness",
		"left hand darkness",
		"Ursula K. Le Guin The Left Hand of Darkness",
	}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("strategy %d: got %q, want %q", i, got[i], want[i])
		}
	}

	// 短标题去虚词后与原标题相同，不重复搜索
	if got := searchStrategies("Dune", ""); len(got) != 1 {
		t.Fatalf("expected a single strategy, got %q", got)
	}
}
