package models

// RecommendationRequest 推荐请求，电影顺序决定响应中的分组顺序
type RecommendationRequest struct {
	Movies      []string     `json:"movies" validate:"required,min=1,dive,required,max=200"`
	Preferences *Preferences `json:"preferences,omitempty"`
}

// BookCandidate 补全服务给出的候选书目，尚未经过书目库补充
type BookCandidate struct {
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	Reason          string   `json:"reason"`
	TasteMatchScore *float64 `json:"taste_match_score,omitempty"`
	PrimaryAppeal   string   `json:"primary_appeal,omitempty"`
}

// BookMetadata 书目库返回的元数据
type BookMetadata struct {
	Title           string   `json:"title,omitempty"`
	Author          string   `json:"author,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`
	RatingsCount    *int     `json:"ratings_count,omitempty"`
	UsersCount      *int     `json:"users_count,omitempty"`
	CoverURL        *string  `json:"cover_url,omitempty"`
	CanonicalURL    *string  `json:"url,omitempty"`
	Genres          []string `json:"genres,omitempty"`
	ISBN            *string  `json:"isbn,omitempty"`
	PublicationYear *int     `json:"publication_year,omitempty"`
	PageCount       *int     `json:"page_count,omitempty"`
	HardcoverID     *int     `json:"hardcover_id,omitempty"`
	Description     *string  `json:"description,omitempty"`
}

// BookRecommendation 补充过元数据的最终推荐书目
// 元数据缺失时对应字段保持为null
type BookRecommendation struct {
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	Reason          string   `json:"reason"`
	Rating          *float64 `json:"rating"`
	CoverURL        *string  `json:"cover_url"`
	HardcoverURL    *string  `json:"hardcover_url"`
	TasteMatchScore *float64 `json:"taste_match_score,omitempty"`
	PrimaryAppeal   string   `json:"primary_appeal,omitempty"`
	GenreTags       []string `json:"genre_tags,omitempty"`
	ISBN            *string  `json:"isbn,omitempty"`
	PublicationYear *int     `json:"publication_year,omitempty"`
	PageCount       *int     `json:"page_count,omitempty"`
	HardcoverID     *int     `json:"hardcover_id,omitempty"`
	UsersCount      *int     `json:"users_count,omitempty"`
	Description     *string  `json:"description,omitempty"`
}

// NewBookRecommendation 由候选书目构造推荐项，元数据字段为空
func NewBookRecommendation(c BookCandidate) BookRecommendation {
	return BookRecommendation{
		Title:           c.Title,
		Author:          c.Author,
		Reason:          c.Reason,
		TasteMatchScore: c.TasteMatchScore,
		PrimaryAppeal:   c.PrimaryAppeal,
	}
}

// Enrich 将书目库元数据合并到推荐项，meta为nil时不做任何修改
func (b *BookRecommendation) Enrich(meta *BookMetadata) {
	if meta == nil {
		return
	}
	b.Rating = meta.Rating
	b.CoverURL = meta.CoverURL
	b.HardcoverURL = meta.CanonicalURL
	b.GenreTags = meta.Genres
	b.ISBN = meta.ISBN
	b.PublicationYear = meta.PublicationYear
	b.PageCount = meta.PageCount
	b.HardcoverID = meta.HardcoverID
	b.UsersCount = meta.UsersCount
	b.Description = meta.Description
}

// 推荐方式
const (
	// RecommendationTypeIndividual 每部电影单独推荐
	RecommendationTypeIndividual = "individual"
	// RecommendationTypeUnified 根据整组电影的口味画像统一推荐
	RecommendationTypeUnified = "unified"
)

// IsRecommendationType 判断是否为支持的推荐方式
func IsRecommendationType(t string) bool {
	return t == RecommendationTypeIndividual || t == RecommendationTypeUnified
}

// RecommendationResponse 单部电影对应的推荐结果
// 统一推荐时只有一项，movie为整组电影的概括，并附带口味画像
type RecommendationResponse struct {
	Movie              string               `json:"movie"`
	Books              []BookRecommendation `json:"books"`
	TasteProfile       *TasteProfile        `json:"taste_profile,omitempty"`
	RecommendationType string               `json:"recommendation_type,omitempty"`
}

// RecommendationInsights 推荐结果的统计洞察
type RecommendationInsights struct {
	TotalMoviesAnalyzed      int      `json:"total_movies_analyzed"`
	DominantThemes           []string `json:"dominant_themes"`
	GenreDiversityScore      float64  `json:"genre_diversity_score"`
	RecommendationConfidence float64  `json:"recommendation_confidence"`
	AlternativeSuggestions   []string `json:"alternative_suggestions,omitempty"`
}

// EnhancedRecommendationResponse 推荐接口的完整响应
type EnhancedRecommendationResponse struct {
	Recommendations []RecommendationResponse `json:"recommendations"`
	Insights        *RecommendationInsights  `json:"insights,omitempty"`
	ProcessingTime  float64                  `json:"processing_time"`
	CacheHit        bool                     `json:"cache_hit"`
}
