package utils

import (
	"math"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain object", in: `{"a":1}`, want: `{"a":1}`},
		{name: "prose around object", in: "Here you go:\n{\"a\":1}\nEnjoy!", want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\":[1,2]}\n```", want: `{"a":[1,2]}`},
		{name: "bare fence", in: "```\n[1,2]\n```", want: `[1,2]`},
		{name: "array first", in: `result: [{"a":1}]`, want: `[{"a":1}]`},
		{name: "bracket before object", in: "Note [1]: {\"recommendations\":[{\"a\":1}]}", want: `{"recommendations":[{"a":1}]}`},
		{name: "object in array", in: `[{"a":1},{"b":2}]`, want: `[{"a":1},{"b":2}]`},
		{name: "nothing", in: "no json here", want: "no json here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Fatalf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRemoveStopWords(t *testing.T) {
	tests := map[string]string{
		"The Left Hand of Darkness": "left hand darkness",
		"The Road":                  "the road",
		"  Of   The  In ":           "of the in",
	}
	for in, want := range tests {
		if got := RemoveStopWords(in); got != want {
			t.Errorf("RemoveStopWords(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJaccard(t *testing.T) {
	a := WordSet("The Name of the Wind")
	b := WordSet("Name of the Wind, The")
	if got := Jaccard(a, b); got != 1 {
		t.Fatalf("expected identical word sets, got %v", got)
	}

	c := WordSet("Wind and Truth")
	got := Jaccard(a, c)
	want := 1.0 / 4.0 // {name, wind} vs {wind, and, truth}
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Jaccard = %v, want %v", got, want)
	}

	if Jaccard(nil, a) != 0 {
		t.Fatal("empty set should score 0")
	}
}

func TestDeduplicateSlice(t *testing.T) {
	got := DeduplicateSlice([]string{"sci-fi", " sci-fi ", "", "horror", "sci-fi"})
	if len(got) != 2 || got[0] != "sci-fi" || got[1] != "horror" {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestPreviewKeepsRuneBoundary(t *testing.T) {
	s := "推荐书目"
	got := Preview(s, 4)
	if got != "推..." {
		t.Fatalf("Preview = %q", got)
	}
	if Preview("short", 10) != "short" {
		t.Fatal("short strings must be returned unchanged")
	}
}

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  Blade   Runner\t2049 "); got != "blade runner 2049" {
		t.Fatalf("NormalizeText = %q", got)
	}
}
