package cache

import (
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"cinereads/models"
	"cinereads/utils"
)

// 缓存键版本，修改键的组成方式时需要升级
const keyVersion = "3.0"

// 缓存键前缀
const (
	PrefixRecommendations = "movies_v3:"
	PrefixBook            = "book_v3:"
	PrefixTasteProfile    = "taste_profile_v3:"
)

// NormalizedPreferences 归一化后的偏好，语义相同的偏好得到相同的结果
type NormalizedPreferences struct {
	Mood             string   `json:"mood,omitempty"`
	Pace             string   `json:"pace,omitempty"`
	GenrePreferences []string `json:"genre_preferences,omitempty"`
	GenreBlocklist   []string `json:"genre_blocklist,omitempty"`
}

// NormalizePreferences null、空串和空集合都视为没有约束，集合排序去重
func NormalizePreferences(p *models.Preferences) NormalizedPreferences {
	var n NormalizedPreferences
	if p == nil {
		return n
	}
	if p.Mood != nil {
		n.Mood = utils.NormalizeText(*p.Mood)
	}
	if p.Pace != nil {
		n.Pace = utils.NormalizeText(*p.Pace)
	}
	n.GenrePreferences = normalizeSet(p.GenrePreferences)
	n.GenreBlocklist = normalizeSet(p.GenreBlocklist)
	return n
}

func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(values))
	for _, v := range values {
		normalized = append(normalized, utils.NormalizeText(v))
	}
	normalized = utils.DeduplicateSlice(normalized)
	if len(normalized) == 0 {
		return nil
	}
	sort.Strings(normalized)
	return normalized
}

// normalizeMovies 电影标题忽略大小写和多余空白，但保留顺序
func normalizeMovies(movies []string) []string {
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = utils.NormalizeText(m)
	}
	return out
}

func fingerprint(prefix string, payload interface{}) string {
	// 结构体字段顺序固定，序列化结果是确定的
	b, err := json.Marshal(payload)
	if err != nil {
		// 只包含字符串字段，不会失败
		panic(err)
	}
	return prefix + utils.CalculateMD5Bytes(b)
}

// RecommendationKey 逐部电影推荐结果的缓存键，电影顺序参与计算
func RecommendationKey(movies []string, prefs *models.Preferences) string {
	return RecommendationKeyFor(models.RecommendationTypeIndividual, movies, prefs)
}

// RecommendationKeyFor 指定推荐方式的缓存键，不同方式的结果互不覆盖
func RecommendationKeyFor(recType string, movies []string, prefs *models.Preferences) string {
	return fingerprint(PrefixRecommendations, struct {
		Movies      []string              `json:"movies"`
		Preferences NormalizedPreferences `json:"preferences"`
		Type        string                `json:"type"`
		Version     string                `json:"version"`
	}{
		Movies:      normalizeMovies(movies),
		Preferences: NormalizePreferences(prefs),
		Type:        recType,
		Version:     keyVersion,
	})
}

// TasteProfileKey 口味画像缓存键，画像描述的是整体口味，与电影顺序无关
func TasteProfileKey(movies []string, prefs *models.Preferences) string {
	sorted := normalizeMovies(movies)
	sort.Strings(sorted)
	return fingerprint(PrefixTasteProfile, struct {
		Movies      []string              `json:"movies"`
		Preferences NormalizedPreferences `json:"preferences"`
		Type        string                `json:"type"`
		Version     string                `json:"version"`
	}{
		Movies:      sorted,
		Preferences: NormalizePreferences(prefs),
		Type:        models.CacheTypeTasteProfiles,
		Version:     keyVersion,
	})
}

// BookKey 书目元数据缓存键
func BookKey(title, author string) string {
	raw := utils.NormalizeText(title) + ":" + utils.NormalizeText(author)
	return PrefixBook + utils.CalculateMD5(raw)
}

// FileName 文件后端使用的文件名
func FileName(key string) string {
	return utils.CalculateMD5(key) + ".json"
}

// TypeForKey 根据键前缀推断缓存类型
func TypeForKey(key string) string {
	switch {
	case strings.HasPrefix(key, PrefixRecommendations):
		return models.CacheTypeRecommendations
	case strings.HasPrefix(key, PrefixBook):
		return models.CacheTypeBooks
	case strings.HasPrefix(key, PrefixTasteProfile):
		return models.CacheTypeTasteProfiles
	default:
		return ""
	}
}
