package handlers

import (
	"context"
	"errors"
	"net/http"

	"cinereads/cache"
	"cinereads/config"
	"cinereads/logger"
	"cinereads/models"
	"cinereads/services"
	"cinereads/utils"
)

// Version 接口版本，出现在根路径响应中
const Version = "1.0.0"

// API 聚合HTTP接口依赖
type API struct {
	cfg       *config.Config
	service   *services.RecommendationService
	cache     *cache.Cache
	openai    services.CredentialReporter
	hardcover services.CredentialReporter
}

// NewAPI 创建接口处理器，openai/hardcover 用于健康检查报告凭证状态
func NewAPI(cfg *config.Config, service *services.RecommendationService, c *cache.Cache, openai, hardcover services.CredentialReporter) *API {
	return &API{
		cfg:       cfg,
		service:   service,
		cache:     c,
		openai:    openai,
		hardcover: hardcover,
	}
}

// writeServiceError 把服务层错误映射为HTTP响应，debug模式下返回错误详情
func (a *API) writeServiceError(w http.ResponseWriter, err error, code int) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		vcode := models.CodeInvalidParams
		switch {
		case errors.Is(err, services.ErrNoMovies):
			vcode = models.CodeMissingParams
		case errors.Is(err, services.ErrTooManyMovies):
			vcode = models.CodeTooManyMovies
		}
		utils.WriteCustomErrorResponse(w, http.StatusBadRequest, vcode, verr.Error(), map[string]string{"field": verr.Field})
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("请求在完成前被取消", "error", err)
		utils.WriteErrorResponse(w, http.StatusServiceUnavailable, models.CodeServerError, nil)
		return
	}

	logger.Error("处理请求失败", "error", err)
	if a.cfg.Debug.Enabled {
		utils.WriteCustomErrorResponse(w, http.StatusInternalServerError, code, err.Error(), nil)
		return
	}
	utils.WriteErrorResponse(w, http.StatusInternalServerError, code, nil)
}

// writeDecodeError 请求体解析或结构校验失败
func writeDecodeError(w http.ResponseWriter, err error) {
	var verrs utils.ValidationErrors
	if errors.As(err, &verrs) {
		code := models.CodeInvalidParams
		for _, fe := range verrs {
			if fe.Tag == "required" || fe.Tag == "min" {
				code = models.CodeMissingParams
			}
		}
		utils.WriteCustomErrorResponse(w, http.StatusBadRequest, code, verrs.Error(), verrs)
		return
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		utils.WriteCustomErrorResponse(w, http.StatusRequestEntityTooLarge, models.CodeInvalidParams, "request body too large", nil)
		return
	}
	utils.WriteCustomErrorResponse(w, http.StatusBadRequest, models.CodeInvalidParams, "invalid request body: "+err.Error(), nil)
}
