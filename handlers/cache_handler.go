package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cinereads/cache"
	"cinereads/logger"
	"cinereads/models"
	"cinereads/utils"
)

// CacheStats godoc
// @Summary 缓存统计
// @Description 按缓存类型统计条目数和占用字节数
// @Tags 缓存
// @Produce json
// @Success 200 {object} models.CacheStats "成功"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/cache/stats [get]
func (a *API) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.cache.Stats(r.Context())
	if err != nil {
		a.writeServiceError(w, err, models.CodeCacheError)
		return
	}
	utils.WriteOK(w, stats)
}

// ClearCache godoc
// @Summary 清空缓存
// @Description 清空指定类型的缓存，不传 cache_type 时清空全部
// @Tags 缓存
// @Produce json
// @Param cache_type query string false "缓存类型" Enums(recommendations, books, taste_profiles)
// @Success 200 {object} models.MessageResponse "成功"
// @Failure 400 {object} models.APIResponse "未知的缓存类型"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/cache/clear [delete]
func (a *API) ClearCache(w http.ResponseWriter, r *http.Request) {
	cacheType := strings.TrimSpace(r.URL.Query().Get("cache_type"))
	if cacheType != "" && !models.IsKnownCacheType(cacheType) {
		utils.WriteCustomErrorResponse(w, http.StatusBadRequest, models.CodeUnknownCacheTyp,
			fmt.Sprintf("unknown cache type %q, expected one of: %s", cacheType, strings.Join(models.CacheTypes, ", ")), nil)
		return
	}

	removed, err := a.cache.Clear(r.Context(), cacheType)
	if err != nil {
		if errors.Is(err, cache.ErrUnknownType) {
			utils.WriteErrorResponse(w, http.StatusBadRequest, models.CodeUnknownCacheTyp, nil)
			return
		}
		a.writeServiceError(w, err, models.CodeCacheError)
		return
	}

	msg := "All cache cleared successfully"
	if cacheType != "" {
		msg = fmt.Sprintf("Cache type '%s' cleared successfully", cacheType)
	}
	logger.Info("缓存已清空", "cache_type", cacheType, "removed", removed)
	utils.WriteOK(w, models.MessageResponse{Message: msg, Removed: removed})
}
