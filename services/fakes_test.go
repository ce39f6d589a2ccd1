package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"cinereads/cache"
	"cinereads/config"
	"cinereads/models"
)

var errFakeUpstream = errors.New("fake upstream failure")

type fakeCompletion struct {
	mu         sync.Mutex
	candidates map[string][]models.BookCandidate
	failures   map[string]error
	calls      map[string]int
	// versioned 为true时在理由后追加调用次数，用于区分新旧结果
	versioned bool

	profile      *models.TasteProfile
	profileErr   error
	profileCalls int

	unified      []models.BookCandidate
	unifiedErr   error
	unifiedCalls int
	unifiedSeen  []string
}

func newFakeCompletion() *fakeCompletion {
	return &fakeCompletion{
		candidates: make(map[string][]models.BookCandidate),
		failures:   make(map[string]error),
		calls:      make(map[string]int),
	}
}

func (f *fakeCompletion) Suggest(_ context.Context, movie string, _ *models.Preferences) ([]models.BookCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[movie]++
	if err, ok := f.failures[movie]; ok {
		return nil, &CompletionError{Movie: movie, Err: err}
	}
	out := make([]models.BookCandidate, len(f.candidates[movie]))
	copy(out, f.candidates[movie])
	if f.versioned {
		for i := range out {
			out[i].Reason = out[i].Reason + " #" + strings.Repeat("I", f.calls[movie])
		}
	}
	return out, nil
}

func (f *fakeCompletion) SuggestUnified(_ context.Context, movies []string, _ *models.Preferences) (*models.TasteProfile, []models.BookCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unifiedCalls++
	f.unifiedSeen = append([]string(nil), movies...)
	if f.unifiedErr != nil {
		return nil, nil, &CompletionError{Movie: strings.Join(movies, ", "), Err: f.unifiedErr}
	}
	out := make([]models.BookCandidate, len(f.unified))
	copy(out, f.unified)
	return f.profile, out, nil
}

func (f *fakeCompletion) AnalyzeTasteProfile(context.Context, []string, *models.Preferences) (*models.TasteProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	if f.profileErr != nil {
		return nil, &CompletionError{Movie: "profile", Err: f.profileErr}
	}
	return f.profile, nil
}

func (f *fakeCompletion) callCount(movie string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[movie]
}

func (f *fakeCompletion) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeCatalog struct {
	mu       sync.Mutex
	metadata map[string]*models.BookMetadata
	failures map[string]error
	calls    int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		metadata: make(map[string]*models.BookMetadata),
		failures: make(map[string]error),
	}
}

func (f *fakeCatalog) Lookup(_ context.Context, title, author string) (*models.BookMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.failures[title]; ok {
		return nil, &CatalogError{Title: title, Err: err}
	}
	return f.metadata[title+"|"+author], nil
}

func (f *fakeCatalog) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(completion CompletionClient, catalog CatalogClient) (*RecommendationService, *cache.Cache) {
	cfg := config.Default()
	c := cache.New(cache.NewMemoryStore(0))
	return NewRecommendationService(cfg, completion, catalog, c), c
}

func ptr[T any](v T) *T { return &v }
