package services

import (
	"context"
	"errors"

	"cinereads/cache"
	"cinereads/logger"
	"cinereads/models"
)

// AnalyzeTasteProfile 返回一组电影的口味画像以及是否命中缓存
//
// 补全失败时返回通用画像且不写缓存，只有请求不合法时返回错误。
func (s *RecommendationService) AnalyzeTasteProfile(ctx context.Context, req models.RecommendationRequest) (*models.TasteProfile, bool, error) {
	if err := ValidateRequest(&req, s.maxMovies); err != nil {
		return nil, false, err
	}

	key := cache.TasteProfileKey(req.Movies, req.Preferences)
	var cached models.TasteProfile
	if s.cache.Get(ctx, models.CacheTypeTasteProfiles, key, &cached) {
		return &cached, true, nil
	}

	profile, err := s.completion.AnalyzeTasteProfile(ctx, req.Movies, req.Preferences)
	if err != nil {
		if errors.Is(err, ErrUpstreamAuth) {
			logger.Error("补全服务认证失败", "error", err)
		} else {
			logger.Warn("口味画像分析失败，返回通用画像", "movies", req.Movies, "error", err)
		}
		return DefaultTasteProfile(), false, nil
	}

	_ = s.cache.Put(ctx, models.CacheTypeTasteProfiles, key, profile)
	return profile, false, nil
}
