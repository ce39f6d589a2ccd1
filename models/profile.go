package models

// 可选的心情与节奏取值
var (
	Moods = []string{"light", "serious", "dark", "uplifting", "thoughtful", "adventurous", "romantic", "mysterious"}
	Paces = []string{"slow", "moderate", "fast"}
)

// Preferences 用户口味偏好，字段为空表示没有约束
type Preferences struct {
	Mood             *string  `json:"mood,omitempty" validate:"omitempty,oneof=light serious dark uplifting thoughtful adventurous romantic mysterious"`
	Pace             *string  `json:"pace,omitempty" validate:"omitempty,oneof=slow moderate fast"`
	GenrePreferences []string `json:"genre_preferences,omitempty" validate:"omitempty,max=10,dive,required,max=50"`
	GenreBlocklist   []string `json:"genre_blocklist,omitempty" validate:"omitempty,max=10,dive,required,max=50"`
}

// IsEmpty 判断偏好是否不包含任何约束
func (p *Preferences) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.Mood == nil && p.Pace == nil && len(p.GenrePreferences) == 0 && len(p.GenreBlocklist) == 0
}

// TasteProfile 根据电影列表分析出的口味画像
type TasteProfile struct {
	Themes                []string `json:"themes"`
	NarrativeStyle        string   `json:"narrative_style"`
	EmotionalTone         string   `json:"emotional_tone"`
	GenreFusion           string   `json:"genre_fusion"`
	CharacterPreferences  string   `json:"character_preferences"`
	ArtisticSensibilities string   `json:"artistic_sensibilities"`
	ConfidenceScore       *float64 `json:"confidence_score,omitempty"`
}
