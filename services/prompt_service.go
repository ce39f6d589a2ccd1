package services

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"cinereads/models"
	"cinereads/utils"
)

const systemPrompt = `You are an expert literary curator. Given a single movie, you identify its themes, motifs, tone and character arcs and map them to books that share the same thematic DNA.

Rules:
- Recommend real, published books only. Never invent titles or authors.
- Honour the reader's mood, pace and genre constraints when they are given. Never recommend a book from a genre the reader asked to avoid.
- Do not recommend the novelization or source novel of the movie itself.
- Always respond with valid JSON and nothing else.`

const unifiedSystemPrompt = `You are an expert literary curator. Given a collection of movies, you first build a single taste profile capturing their shared themes, narrative styles, emotional tones and artistic sensibilities, then recommend books that fit that whole profile rather than any individual movie.

Rules:
- Recommend real, published books only. Never invent titles or authors.
- Honour the reader's mood, pace and genre constraints when they are given. Never recommend a book from a genre the reader asked to avoid.
- Always respond with valid JSON and nothing else.`

const tasteProfileSystemPrompt = "You are an expert in analyzing artistic and narrative preferences from media consumption patterns. Always respond with valid JSON."

// buildMoviePrompt 构建单部电影的推荐提示词
func buildMoviePrompt(movie string, prefs *models.Preferences, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Movie: %s\n\n", movie)
	b.WriteString("First analyze the movie's themes and motifs, its emotional tone, its narrative style and the arcs of its main characters. ")
	fmt.Fprintf(&b, "Then recommend exactly %d books that a viewer who loved this movie would enjoy for those same reasons.\n", count)

	if constraints := preferenceLines(prefs); constraints != "" {
		b.WriteString("\nReader preferences (treat these as filters):\n")
		b.WriteString(constraints)
	}

	b.WriteString(`
Respond with a JSON object of this shape:
{
  "recommendations": [
    {
      "title": "Book Title",
      "author": "Author Name",
      "reason": "Two or three sentences explaining the thematic link to the movie",
      "taste_match_score": 0.9,
      "primary_appeal": "The aspect of the movie this book primarily satisfies"
    }
  ]
}`)
	return b.String()
}

// buildUnifiedPrompt 构建整组电影的统一推荐提示词，输出同时包含口味画像和书单
func buildUnifiedPrompt(movies []string, prefs *models.Preferences, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Movies: %s\n\n", strings.Join(movies, ", "))
	b.WriteString("First analyze the viewer's overall taste: common themes and motifs, preferred narrative styles, emotional tone, genre inclinations, character archetypes and atmosphere. ")
	fmt.Fprintf(&b, "Then recommend exactly %d books for someone with this combined taste. Do not pick books that only match one of the movies.\n", count)

	if constraints := preferenceLines(prefs); constraints != "" {
		b.WriteString("\nReader preferences (treat these as filters):\n")
		b.WriteString(constraints)
	}

	b.WriteString(`
Respond with a JSON object of this shape:
{
  "taste_profile": {
    "themes": ["theme"],
    "narrative_style": "description",
    "emotional_tone": "description",
    "genre_fusion": "description",
    "character_preferences": "description",
    "artistic_sensibilities": "description",
    "confidence_score": 0.85
  },
  "unified_recommendations": [
    {
      "title": "Book Title",
      "author": "Author Name",
      "reason": "Two or three sentences linking the book to the overall taste profile",
      "taste_match_score": 0.9,
      "primary_appeal": "The part of the taste profile this book primarily satisfies"
    }
  ]
}`)
	return b.String()
}

// UnifiedSummary 统一推荐结果中代替电影标题的概括
func UnifiedSummary(movies []string) string {
	switch len(movies) {
	case 0:
		return ""
	case 1:
		return "Based on your interest in " + movies[0]
	case 2:
		return "Based on your taste for " + movies[0] + " and " + movies[1]
	default:
		return "Based on your taste profile from " + strings.Join(movies[:len(movies)-1], ", ") + ", and " + movies[len(movies)-1]
	}
}

// buildTasteProfilePrompt 构建口味画像分析提示词
func buildTasteProfilePrompt(movies []string, prefs *models.Preferences) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the taste profile of someone who enjoys these movies: %s\n\n", strings.Join(movies, ", "))
	b.WriteString(`Identify and describe:
1. Common themes and motifs
2. Preferred narrative styles
3. Emotional and tonal preferences
4. Genre inclinations
5. Character archetype preferences
6. Visual and atmospheric elements
`)
	if constraints := preferenceLines(prefs); constraints != "" {
		b.WriteString("\nStated preferences:\n")
		b.WriteString(constraints)
	}
	b.WriteString(`
Respond with a JSON object:
{
  "themes": ["theme"],
  "narrative_style": "description",
  "emotional_tone": "description",
  "genre_fusion": "description",
  "character_preferences": "description",
  "artistic_sensibilities": "description",
  "confidence_score": 0.85
}`)
	return b.String()
}

func preferenceLines(prefs *models.Preferences) string {
	if prefs.IsEmpty() {
		return ""
	}
	var b strings.Builder
	if prefs.Mood != nil && *prefs.Mood != "" {
		fmt.Fprintf(&b, "- Mood: %s\n", *prefs.Mood)
	}
	if prefs.Pace != nil && *prefs.Pace != "" {
		fmt.Fprintf(&b, "- Pacing: %s\n", *prefs.Pace)
	}
	if len(prefs.GenrePreferences) > 0 {
		fmt.Fprintf(&b, "- Preferred genres: %s\n", strings.Join(prefs.GenrePreferences, ", "))
	}
	if len(prefs.GenreBlocklist) > 0 {
		fmt.Fprintf(&b, "- Avoid these genres entirely: %s\n", strings.Join(prefs.GenreBlocklist, ", "))
	}
	return b.String()
}

// rawCandidate 模型输出的单条书目，分数可能是数字也可能是字符串
type rawCandidate struct {
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	Reason          string          `json:"reason"`
	TasteMatchScore json.RawMessage `json:"taste_match_score"`
	PrimaryAppeal   string          `json:"primary_appeal"`
}

// ParseCandidates 把模型输出解析为候选书目
//
// 支持代码块包裹、带 recommendations/books/unified_recommendations 字段的对象以及裸数组。
// 缺少标题或作者的条目被丢弃，重复条目只保留第一条，limit>0时截断。
// 没有任何有效条目时返回 ErrMalformedCompletion。
func ParseCandidates(raw string, limit int) ([]models.BookCandidate, error) {
	content := utils.ExtractJSON(raw)
	if content == "" {
		return nil, fmt.Errorf("%w: empty output", ErrMalformedCompletion)
	}

	var items []rawCandidate
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCompletion, err)
		}
	} else {
		var envelope struct {
			Recommendations        []rawCandidate `json:"recommendations"`
			Books                  []rawCandidate `json:"books"`
			UnifiedRecommendations []rawCandidate `json:"unified_recommendations"`
		}
		if err := json.Unmarshal([]byte(content), &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCompletion, err)
		}
		switch {
		case len(envelope.Recommendations) > 0:
			items = envelope.Recommendations
		case len(envelope.Books) > 0:
			items = envelope.Books
		default:
			items = envelope.UnifiedRecommendations
		}
	}

	seen := make(map[string]bool, len(items))
	candidates := make([]models.BookCandidate, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		author := strings.TrimSpace(item.Author)
		if title == "" || author == "" {
			continue
		}
		key := utils.NormalizeText(title) + "|" + utils.NormalizeText(author)
		if seen[key] {
			continue
		}
		seen[key] = true

		candidates = append(candidates, models.BookCandidate{
			Title:           title,
			Author:          author,
			Reason:          strings.TrimSpace(item.Reason),
			TasteMatchScore: parseScore(item.TasteMatchScore),
			PrimaryAppeal:   strings.TrimSpace(item.PrimaryAppeal),
		})
		if limit > 0 && len(candidates) == limit {
			break
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no usable book entries", ErrMalformedCompletion)
	}
	return candidates, nil
}

// parseScore 分数统一到0-1，百分制的值会被换算
func parseScore(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	text := strings.Trim(string(raw), `"% `)
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || v < 0 {
		return nil
	}
	if v > 1 {
		v /= 100
	}
	if v > 1 {
		v = 1
	}
	return &v
}

// ParseTasteProfile 解析口味画像，兼容外层包了 taste_profile 字段的输出
func ParseTasteProfile(raw string) (*models.TasteProfile, error) {
	content := utils.ExtractJSON(raw)

	var wrapped struct {
		TasteProfile *models.TasteProfile `json:"taste_profile"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCompletion, err)
	}
	profile := wrapped.TasteProfile
	if profile == nil {
		profile = &models.TasteProfile{}
		if err := json.Unmarshal([]byte(content), profile); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCompletion, err)
		}
	}
	if len(profile.Themes) == 0 && profile.NarrativeStyle == "" && profile.EmotionalTone == "" {
		return nil, fmt.Errorf("%w: empty taste profile", ErrMalformedCompletion)
	}
	return profile, nil
}

// ParseUnified 解析统一推荐的输出，书单必须有效，画像缺失或不完整时返回nil画像
func ParseUnified(raw string, limit int) (*models.TasteProfile, []models.BookCandidate, error) {
	candidates, err := ParseCandidates(raw, limit)
	if err != nil {
		return nil, nil, err
	}
	profile, err := ParseTasteProfile(raw)
	if err != nil {
		return nil, candidates, nil
	}
	return profile, candidates, nil
}

// DefaultTasteProfile 分析失败时返回的通用画像
func DefaultTasteProfile() *models.TasteProfile {
	confidence := 0.5
	return &models.TasteProfile{
		Themes:                []string{"character-driven narratives", "emotional depth"},
		NarrativeStyle:        "Complex, layered storytelling",
		EmotionalTone:         "Thoughtful and engaging",
		GenreFusion:           "Blend of multiple genres",
		CharacterPreferences:  "Well-developed, complex characters",
		ArtisticSensibilities: "Appreciation for craftsmanship",
		ConfidenceScore:       &confidence,
	}
}
