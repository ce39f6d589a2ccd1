package services

import (
	"errors"
	"strings"
	"testing"

	"cinereads/models"
)

func TestParseCandidates(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		limit      int
		wantTitles []string
		wantErr    bool
	}{
		{
			name:       "recommendations object",
			raw:        `{"recommendations":[{"title":"Dune","author":"Frank Herbert","reason":"desert"}]}`,
			wantTitles: []string{"Dune"},
		},
		{
			name: "fenced with prose",
			raw: "Here you go:\n```json\n" +
				`{"books":[{"title":"Solaris","author":"Stanislaw Lem","reason":"contact"}]}` +
				"\n```\nEnjoy!",
			wantTitles: []string{"Solaris"},
		},
		{
			name:       "bare array",
			raw:        `[{"title":"Neuromancer","author":"William Gibson"},{"title":"Snow Crash","author":"Neal Stephenson"}]`,
			wantTitles: []string{"Neuromancer", "Snow Crash"},
		},
		{
			name:       "unified key",
			raw:        `{"taste_profile":{},"unified_recommendations":[{"title":"Hyperion","author":"Dan Simmons"}]}`,
			wantTitles: []string{"Hyperion"},
		},
		{
			name:       "drops incomplete and duplicate entries",
			raw:        `{"recommendations":[{"title":"Dune","author":""},{"title":"Emma","author":"Jane Austen"},{"title":" emma ","author":"jane austen"},{"title":"","author":"X"}]}`,
			wantTitles: []string{"Emma"},
		},
		{
			name:       "truncates to limit",
			raw:        `[{"title":"A","author":"a"},{"title":"B","author":"b"},{"title":"C","author":"c"}]`,
			limit:      2,
			wantTitles: []string{"A", "B"},
		},
		{name: "plain prose", raw: "Sorry, I cannot help with that.", wantErr: true},
		{name: "empty list", raw: `{"recommendations":[]}`, wantErr: true},
		{name: "truncated json", raw: `{"recommendations":[{"title":"Dune"`, wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCandidates(tt.raw, tt.limit)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedCompletion) {
					t.Fatalf("expected ErrMalformedCompletion, got %v (%+v)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.wantTitles) {
				t.Fatalf("got %d candidates, want %d: %+v", len(got), len(tt.wantTitles), got)
			}
			for i, title := range tt.wantTitles {
				if got[i].Title != title {
					t.Errorf("candidate %d: got %q, want %q", i, got[i].Title, title)
				}
			}
		})
	}
}

func TestParseCandidatesScores(t *testing.T) {
	raw := `{"recommendations":[
		{"title":"A","author":"a","taste_match_score":0.82,"primary_appeal":"tone"},
		{"title":"B","author":"b","taste_match_score":"0.6"},
		{"title":"C","author":"c","taste_match_score":95},
		{"title":"D","author":"d","taste_match_score":"high"},
		{"title":"E","author":"e"}
	]}`
	got, err := ParseCandidates(raw, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []*float64{ptr(0.82), ptr(0.6), ptr(0.95), nil, nil}
	for i, w := range want {
		g := got[i].TasteMatchScore
		switch {
		case w == nil && g != nil:
			t.Errorf("%s: expected nil score, got %v", got[i].Title, *g)
		case w != nil && (g == nil || *g != *w):
			t.Errorf("%s: expected %v, got %v", got[i].Title, *w, g)
		}
	}
	if got[0].PrimaryAppeal != "tone" {
		t.Errorf("primary appeal lost: %+v", got[0])
	}
}

func TestParseTasteProfile(t *testing.T) {
	direct := `{"themes":["grief","time"],"narrative_style":"non-linear","confidence_score":0.8}`
	wrapped := `{"taste_profile":` + direct + `}`

	for name, raw := range map[string]string{"direct": direct, "wrapped": wrapped} {
		profile, err := ParseTasteProfile(raw)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
		if len(profile.Themes) != 2 || profile.NarrativeStyle != "non-linear" {
			t.Fatalf("%s: unexpected profile %+v", name, profile)
		}
	}

	if _, err := ParseTasteProfile(`{}`); !errors.Is(err, ErrMalformedCompletion) {
		t.Fatalf("empty profile should be malformed, got %v", err)
	}
}

func TestBuildMoviePrompt(t *testing.T) {
	prefs := &models.Preferences{
		Mood:           ptr("dark"),
		Pace:           ptr("slow"),
		GenreBlocklist: []string{"horror", "romance"},
	}
	prompt := buildMoviePrompt("Se7en", prefs, 5)

	for _, want := range []string{"Movie: Se7en", "exactly 5 books", "- Mood: dark", "- Pacing: slow", "Avoid these genres entirely: horror, romance", `"recommendations"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	plain := buildMoviePrompt("Se7en", nil, 3)
	if strings.Contains(plain, "Reader preferences") {
		t.Error("no preference section expected without preferences")
	}
}

func TestParseUnified(t *testing.T) {
	withProfile := `Note [1]: {"taste_profile":{"themes":["grief"],"emotional_tone":"quiet"},"unified_recommendations":[{"title":"Stoner","author":"John Williams"}]}`
	profile, books, err := ParseUnified(withProfile, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile == nil || profile.EmotionalTone != "quiet" || len(books) != 1 {
		t.Fatalf("unexpected result %+v %+v", profile, books)
	}

	profile, books, err = ParseUnified(`{"unified_recommendations":[{"title":"Stoner","author":"John Williams"}]}`, 5)
	if err != nil || profile != nil || len(books) != 1 {
		t.Fatalf("books without profile: profile=%+v books=%+v err=%v", profile, books, err)
	}

	if _, _, err := ParseUnified(`{"taste_profile":{"themes":["grief"]}}`, 5); !errors.Is(err, ErrMalformedCompletion) {
		t.Fatalf("profile without books should be malformed, got %v", err)
	}
}

func TestUnifiedSummary(t *testing.T) {
	tests := []struct {
		movies []string
		want   string
	}{
		{movies: []string{"Heat"}, want: "Based on your interest in Heat"},
		{movies: []string{"Heat", "Ronin"}, want: "Based on your taste for Heat and Ronin"},
		{movies: []string{"Heat", "Ronin", "Collateral"}, want: "Based on your taste profile from Heat, Ronin, and Collateral"},
	}
	for _, tt := range tests {
		if got := UnifiedSummary(tt.movies); got != tt.want {
			t.Errorf("UnifiedSummary(%v) = %q, want %q", tt.movies, got, tt.want)
		}
	}
}

func TestBuildUnifiedPrompt(t *testing.T) {
	prompt := buildUnifiedPrompt([]string{"Moon", "Her"}, &models.Preferences{Pace: ptr("slow")}, 4)
	for _, want := range []string{"Movies: Moon, Her", "exactly 4 books", "- Pacing: slow", `"taste_profile"`, `"unified_recommendations"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
