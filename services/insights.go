package services

import (
	"sort"
	"strings"

	"cinereads/models"
)

const (
	dominantThemeCount = 3
	defaultConfidence  = 0.5
)

// ComputeInsights 根据推荐结果统计主要题材、题材多样性和平均匹配度
//
// 结果带口味画像时主要题材取画像中的主题，没有匹配度分数时置信度取画像的置信度。
func ComputeInsights(movies []string, recs []models.RecommendationResponse) *models.RecommendationInsights {
	type tally struct {
		label string
		count int
		first int
	}

	var (
		genres     = make(map[string]*tally)
		order      int
		scoreSum   float64
		scoreCount int
		appeals    []string
		seenAppeal = make(map[string]bool)
		profile    *models.TasteProfile
	)

	for _, rec := range recs {
		if profile == nil && rec.TasteProfile != nil {
			profile = rec.TasteProfile
		}
		for _, book := range rec.Books {
			for _, g := range book.GenreTags {
				k := strings.ToLower(strings.TrimSpace(g))
				if k == "" {
					continue
				}
				if t, ok := genres[k]; ok {
					t.count++
				} else {
					genres[k] = &tally{label: strings.TrimSpace(g), count: 1, first: order}
					order++
				}
			}
			if book.TasteMatchScore != nil {
				scoreSum += *book.TasteMatchScore
				scoreCount++
			}
			if a := strings.TrimSpace(book.PrimaryAppeal); a != "" && !seenAppeal[strings.ToLower(a)] {
				seenAppeal[strings.ToLower(a)] = true
				appeals = append(appeals, a)
			}
		}
	}

	ranked := make([]*tally, 0, len(genres))
	for _, t := range genres {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	themes := make([]string, 0, dominantThemeCount)
	if profile != nil {
		for _, theme := range profile.Themes {
			if theme = strings.TrimSpace(theme); theme != "" && len(themes) < dominantThemeCount {
				themes = append(themes, theme)
			}
		}
	}
	if len(themes) == 0 {
		for i := 0; i < len(ranked) && i < dominantThemeCount; i++ {
			themes = append(themes, ranked[i].label)
		}
	}

	diversity := float64(len(genres)) / 10
	if diversity > 1 {
		diversity = 1
	}

	confidence := defaultConfidence
	switch {
	case scoreCount > 0:
		confidence = scoreSum / float64(scoreCount)
	case profile != nil && profile.ConfidenceScore != nil:
		confidence = *profile.ConfidenceScore
	}

	// 备选方向取前几个不同的推荐侧重点
	if len(appeals) > dominantThemeCount {
		appeals = appeals[:dominantThemeCount]
	}

	return &models.RecommendationInsights{
		TotalMoviesAnalyzed:      len(movies),
		DominantThemes:           themes,
		GenreDiversityScore:      diversity,
		RecommendationConfidence: confidence,
		AlternativeSuggestions:   appeals,
	}
}
