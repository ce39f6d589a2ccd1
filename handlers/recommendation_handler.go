package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"cinereads/models"
	"cinereads/services"
	"cinereads/utils"
)

// Recommend godoc
// @Summary 根据电影列表推荐书籍
// @Description 为每部电影生成主题相近的书籍推荐，并补充书目元数据。相同的电影列表和偏好会命中缓存
// @Tags 推荐
// @Accept json
// @Produce json
// @Param request body models.RecommendationRequest true "电影列表与偏好"
// @Param include_insights query bool false "是否返回统计洞察"
// @Param recommendation_type query string false "推荐方式" Enums(individual, unified)
// @Success 200 {object} models.EnhancedRecommendationResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Failure 429 {object} models.APIResponse "请求过于频繁"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/recommend [post]
func (a *API) Recommend(w http.ResponseWriter, r *http.Request) {
	a.recommend(w, r, false)
}

// Regenerate godoc
// @Summary 重新生成推荐
// @Description 跳过缓存读取重新生成推荐，并覆盖缓存中的旧结果
// @Tags 推荐
// @Accept json
// @Produce json
// @Param request body models.RecommendationRequest true "电影列表与偏好"
// @Param include_insights query bool false "是否返回统计洞察"
// @Param recommendation_type query string false "推荐方式" Enums(individual, unified)
// @Success 200 {object} models.EnhancedRecommendationResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Failure 429 {object} models.APIResponse "请求过于频繁"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/regenerate [post]
func (a *API) Regenerate(w http.ResponseWriter, r *http.Request) {
	a.recommend(w, r, true)
}

func (a *API) recommend(w http.ResponseWriter, r *http.Request, force bool) {
	start := time.Now()

	recType := r.URL.Query().Get("recommendation_type")
	if recType == "" {
		recType = a.cfg.Recommendation.DefaultType
	}
	recType = strings.ToLower(recType)
	if !models.IsRecommendationType(recType) {
		utils.WriteCustomErrorResponse(w, http.StatusBadRequest, models.CodeInvalidParams,
			"recommendation_type must be one of: individual, unified", nil)
		return
	}

	var req models.RecommendationRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}

	recs, cacheHit, err := a.service.GetRecommendationsOfType(r.Context(), req, recType, force)
	if err != nil {
		a.writeServiceError(w, err, models.CodeRecommendGenError)
		return
	}

	resp := models.EnhancedRecommendationResponse{
		Recommendations: recs,
		CacheHit:        cacheHit,
	}
	if a.includeInsights(r) {
		resp.Insights = services.ComputeInsights(req.Movies, recs)
	}
	resp.ProcessingTime = roundSeconds(time.Since(start))
	utils.WriteOK(w, resp)
}

// decodeRequest 解析请求体并做规范化与校验，失败时已写入响应
func (a *API) decodeRequest(w http.ResponseWriter, r *http.Request, req *models.RecommendationRequest) bool {
	if err := utils.DecodeJSONBody(w, r, a.cfg.Server.MaxBodyBytes, req); err != nil {
		writeDecodeError(w, err)
		return false
	}
	if err := services.ValidateRequest(req, a.cfg.Recommendation.MaxMoviesPerRequest); err != nil {
		a.writeServiceError(w, err, models.CodeInvalidParams)
		return false
	}
	if err := utils.ValidateStruct(req); err != nil {
		writeDecodeError(w, err)
		return false
	}
	return true
}

// includeInsights 查询参数优先，缺省时使用配置
func (a *API) includeInsights(r *http.Request) bool {
	v := r.URL.Query().Get("include_insights")
	if v == "" {
		return a.cfg.Recommendation.EnableInsights
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return a.cfg.Recommendation.EnableInsights
	}
	return b
}

// TasteProfile godoc
// @Summary 分析电影列表体现的口味
// @Description 分析一组电影共同体现的主题、叙事风格与情感基调。分析失败时返回通用画像
// @Tags 推荐
// @Produce json
// @Param movies query []string true "电影标题，可重复" collectionFormat(multi)
// @Param preferences query string false "JSON格式的偏好"
// @Success 200 {object} models.TasteProfileResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/taste-profile [get]
func (a *API) TasteProfile(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := models.RecommendationRequest{Movies: query["movies"]}

	if raw := query.Get("preferences"); raw != "" {
		var prefs models.Preferences
		if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
			utils.WriteCustomErrorResponse(w, http.StatusBadRequest, models.CodeInvalidParams, "preferences must be a JSON object", nil)
			return
		}
		req.Preferences = &prefs
	}

	if err := services.ValidateRequest(&req, a.cfg.Recommendation.MaxMoviesPerRequest); err != nil {
		a.writeServiceError(w, err, models.CodeInvalidParams)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		writeDecodeError(w, err)
		return
	}

	profile, cacheHit, err := a.service.AnalyzeTasteProfile(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err, models.CodeServerError)
		return
	}

	utils.WriteOK(w, models.TasteProfileResponse{
		Movies:            req.Movies,
		TasteProfile:      profile,
		AnalysisTimestamp: float64(time.Now().UnixMilli()) / 1000,
		CacheHit:          cacheHit,
	})
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
