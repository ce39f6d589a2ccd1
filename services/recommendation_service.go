package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cinereads/cache"
	"cinereads/config"
	"cinereads/logger"
	"cinereads/metrics"
	"cinereads/models"
)

// RecommendationService 推荐流程编排：查缓存、逐部电影调用补全服务、补充书目元数据、写缓存
type RecommendationService struct {
	completion CompletionClient
	catalog    CatalogClient
	cache      *cache.Cache

	maxMovies          int
	maxConcurrentMovie int
	maxConcurrentBooks int
}

// NewRecommendationService 创建推荐服务
func NewRecommendationService(cfg *config.Config, completion CompletionClient, catalog CatalogClient, c *cache.Cache) *RecommendationService {
	s := &RecommendationService{
		completion:         completion,
		catalog:            catalog,
		cache:              c,
		maxMovies:          cfg.Recommendation.MaxMoviesPerRequest,
		maxConcurrentMovie: cfg.Recommendation.MaxConcurrentMovies,
		maxConcurrentBooks: cfg.Recommendation.MaxConcurrentBookRequests,
	}
	if s.maxConcurrentMovie <= 0 {
		s.maxConcurrentMovie = 5 // 默认值
	}
	if s.maxConcurrentBooks <= 0 {
		s.maxConcurrentBooks = 10 // 默认值
	}
	return s
}

// ValidateRequest 校验并规范化请求：去除标题首尾空白，心情和节奏转小写
//
// 规范化结果写入新的切片和偏好结构，调用方传入的底层数据不会被修改。
func ValidateRequest(req *models.RecommendationRequest, maxMovies int) error {
	if len(req.Movies) == 0 {
		return &ValidationError{Field: "movies", Message: "at least one movie is required", Err: ErrNoMovies}
	}
	if maxMovies > 0 && len(req.Movies) > maxMovies {
		return &ValidationError{Field: "movies", Message: fmt.Sprintf("at most %d movies are allowed per request", maxMovies), Err: ErrTooManyMovies}
	}
	movies := make([]string, len(req.Movies))
	for i, m := range req.Movies {
		movies[i] = strings.TrimSpace(m)
		if movies[i] == "" {
			return &ValidationError{Field: fmt.Sprintf("movies[%d]", i), Message: "movie title must not be empty"}
		}
	}
	req.Movies = movies

	if req.Preferences != nil {
		prefs := *req.Preferences
		req.Preferences = &prefs
	}
	if p := req.Preferences; p != nil {
		if p.Mood != nil {
			if v := strings.ToLower(strings.TrimSpace(*p.Mood)); v == "" {
				p.Mood = nil
			} else {
				p.Mood = &v
			}
		}
		if p.Pace != nil {
			if v := strings.ToLower(strings.TrimSpace(*p.Pace)); v == "" {
				p.Pace = nil
			} else {
				p.Pace = &v
			}
		}
		if p.Mood != nil && !contains(models.Moods, *p.Mood) {
			return &ValidationError{Field: "preferences.mood", Message: fmt.Sprintf("must be one of: %s", strings.Join(models.Moods, ", "))}
		}
		if p.Pace != nil && !contains(models.Paces, *p.Pace) {
			return &ValidationError{Field: "preferences.pace", Message: fmt.Sprintf("must be one of: %s", strings.Join(models.Paces, ", "))}
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// GetRecommendations 返回每部电影的推荐结果以及是否命中缓存
//
// force为true时跳过缓存读取，但仍会覆盖写入缓存。单部电影的补全失败只会让该电影得到空列表。
// 只有请求不合法或ctx在组装完成前被取消时才返回错误。
func (s *RecommendationService) GetRecommendations(ctx context.Context, req models.RecommendationRequest, force bool) ([]models.RecommendationResponse, bool, error) {
	return s.GetRecommendationsOfType(ctx, req, models.RecommendationTypeIndividual, force)
}

// GetRecommendationsOfType 按指定方式生成推荐
//
// unified方式只调用一次补全服务，返回唯一一项结果，movie为整组电影的概括。
func (s *RecommendationService) GetRecommendationsOfType(ctx context.Context, req models.RecommendationRequest, recType string, force bool) ([]models.RecommendationResponse, bool, error) {
	if recType == "" {
		recType = models.RecommendationTypeIndividual
	}
	if !models.IsRecommendationType(recType) {
		return nil, false, &ValidationError{Field: "recommendation_type", Message: "must be one of: individual, unified"}
	}

	mode := "recommend"
	if force {
		mode = "regenerate"
	}
	start := time.Now()
	defer func() {
		metrics.RecommendationDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	if err := ValidateRequest(&req, s.maxMovies); err != nil {
		return nil, false, err
	}

	key := cache.RecommendationKeyFor(recType, req.Movies, req.Preferences)
	if !force {
		var cached []models.RecommendationResponse
		if s.cache.Get(ctx, models.CacheTypeRecommendations, key, &cached) && relabel(cached, req.Movies, recType) {
			logger.Info("推荐结果命中缓存", "key", key, "movies", len(req.Movies), "type", recType)
			metrics.RecommendationRequests.WithLabelValues(mode, "hit").Inc()
			return cached, true, nil
		}
	}
	metrics.RecommendationRequests.WithLabelValues(mode, "miss").Inc()
	logger.Info("开始生成推荐", "key", key, "movies", len(req.Movies), "type", recType, "force", force)

	var (
		results   []models.RecommendationResponse
		succeeded int
	)
	if recType == models.RecommendationTypeUnified {
		results, succeeded = s.generateUnified(ctx, req)
	} else {
		results, succeeded = s.generate(ctx, req)
	}

	if err := ctx.Err(); err != nil {
		logger.Warn("请求已取消，不写入缓存", "key", key, "error", err)
		return results, false, err
	}
	if succeeded == 0 {
		logger.Warn("所有电影的补全都失败了，不写入缓存", "key", key)
		return results, false, nil
	}

	// 写入失败已在缓存内部记录，不影响响应
	_ = s.cache.Put(ctx, models.CacheTypeRecommendations, key, results)
	logger.Info("推荐生成完成", "key", key, "movies", len(results), "succeeded", succeeded, "duration_ms", time.Since(start).Milliseconds())
	return results, false, nil
}

// relabel 缓存键忽略标题的大小写和空白，命中后用本次请求的标题回填movie
// 结果条数与请求对不上时按未命中处理
func relabel(cached []models.RecommendationResponse, movies []string, recType string) bool {
	if recType == models.RecommendationTypeUnified {
		if len(cached) != 1 {
			return false
		}
		cached[0].Movie = UnifiedSummary(movies)
		return true
	}
	if len(cached) != len(movies) {
		return false
	}
	for i := range cached {
		cached[i].Movie = movies[i]
	}
	return true
}

// generate 并发处理每部电影，结果顺序与请求一致，返回补全成功的电影数量
func (s *RecommendationService) generate(ctx context.Context, req models.RecommendationRequest) ([]models.RecommendationResponse, int) {
	var (
		results   = make([]models.RecommendationResponse, len(req.Movies))
		ok        = make([]bool, len(req.Movies))
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, s.maxConcurrentMovie)
		// 整个请求共用的书目查询并发上限
		bookSem = make(chan struct{}, s.maxConcurrentBooks)
	)

	for idx, movie := range req.Movies {
		wg.Add(1)
		go func(i int, movie string) {
			defer wg.Done()

			// 使用信号量限制并发数
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[i], ok[i] = s.recommendForMovie(ctx, movie, req.Preferences, bookSem)
		}(idx, movie)
	}
	wg.Wait()

	succeeded := 0
	for _, done := range ok {
		if done {
			succeeded++
		} else {
			metrics.MoviesWithoutBooks.Inc()
		}
	}
	return results, succeeded
}

// recommendForMovie 单部电影的推荐，补全失败时返回空书单和false
func (s *RecommendationService) recommendForMovie(ctx context.Context, movie string, prefs *models.Preferences, bookSem chan struct{}) (models.RecommendationResponse, bool) {
	resp := models.RecommendationResponse{Movie: movie, Books: []models.BookRecommendation{}}

	candidates, err := s.completion.Suggest(ctx, movie, prefs)
	if err != nil {
		if errors.Is(err, ErrUpstreamAuth) {
			logger.Error("补全服务认证失败", "movie", movie, "error", err)
		} else {
			logger.Warn("获取候选书目失败，该电影返回空列表", "movie", movie, "error", err)
		}
		return resp, false
	}

	resp.Books = s.enrich(ctx, candidates, bookSem)
	return resp, true
}

// generateUnified 整组电影一次补全，返回唯一一项结果和成功数量（0或1）
func (s *RecommendationService) generateUnified(ctx context.Context, req models.RecommendationRequest) ([]models.RecommendationResponse, int) {
	resp := models.RecommendationResponse{
		Movie:              UnifiedSummary(req.Movies),
		Books:              []models.BookRecommendation{},
		RecommendationType: models.RecommendationTypeUnified,
	}

	profile, candidates, err := s.completion.SuggestUnified(ctx, req.Movies, req.Preferences)
	if err != nil {
		if errors.Is(err, ErrUpstreamAuth) {
			logger.Error("补全服务认证失败", "movies", len(req.Movies), "error", err)
		} else {
			logger.Warn("获取统一推荐失败，返回空列表", "movies", len(req.Movies), "error", err)
		}
		metrics.MoviesWithoutBooks.Inc()
		return []models.RecommendationResponse{resp}, 0
	}

	resp.TasteProfile = profile
	resp.Books = s.enrich(ctx, candidates, make(chan struct{}, s.maxConcurrentBooks))
	return []models.RecommendationResponse{resp}, 1
}

// enrich 并发为候选书目补充元数据，顺序与候选一致
func (s *RecommendationService) enrich(ctx context.Context, candidates []models.BookCandidate, bookSem chan struct{}) []models.BookRecommendation {
	books := make([]models.BookRecommendation, len(candidates))
	var wg sync.WaitGroup
	for idx, c := range candidates {
		books[idx] = models.NewBookRecommendation(c)
		wg.Add(1)
		go func(i int, c models.BookCandidate) {
			defer wg.Done()

			bookSem <- struct{}{}
			defer func() { <-bookSem }()

			books[i].Enrich(s.lookupBook(ctx, c))
		}(idx, c)
	}
	wg.Wait()
	return books
}

// lookupBook 先查书目缓存再查书目库，任何失败都返回nil
func (s *RecommendationService) lookupBook(ctx context.Context, c models.BookCandidate) *models.BookMetadata {
	key := cache.BookKey(c.Title, c.Author)

	var cached models.BookMetadata
	if s.cache.Get(ctx, models.CacheTypeBooks, key, &cached) {
		return &cached
	}

	meta, err := s.catalog.Lookup(ctx, c.Title, c.Author)
	if err != nil {
		if errors.Is(err, ErrUpstreamAuth) || errors.Is(err, ErrNotConfigured) {
			logger.Error("书目库不可用", "title", c.Title, "error", err)
		} else {
			logger.Warn("查询书目元数据失败", "title", c.Title, "author", c.Author, "error", err)
		}
		return nil
	}
	if meta == nil {
		return nil
	}

	// 只缓存查到的结果
	_ = s.cache.Put(ctx, models.CacheTypeBooks, key, meta)
	return meta
}
