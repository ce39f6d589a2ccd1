package handlers

import (
	"net/http"
	"os"

	"cinereads/models"
	"cinereads/utils"
)

// Root godoc
// @Summary 服务信息
// @Tags 系统
// @Produce json
// @Success 200 {object} models.RootResponse
// @Router / [get]
func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	utils.WriteOK(w, models.RootResponse{
		Message: "CineReads API is running",
		Version: Version,
		Docs:    "/swagger/index.html",
	})
}

// Health godoc
// @Summary 健康检查
// @Description 报告缓存目录与外部服务凭证状态，凭证缺失或被拒绝时 status 为 degraded
// @Tags 系统
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /health [get]
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:              "healthy",
		CacheDirExists:      dirExists(a.cfg.Cache.Dir),
		OpenAIConfigured:    a.openai != nil && a.openai.Configured(),
		HardcoverConfigured: a.hardcover != nil && a.hardcover.Configured(),
		DebugMode:           a.cfg.Debug.Enabled,
		CacheBackend:        a.cache.Backend(),
	}
	// 主动关闭的书目库集成不算降级
	if !resp.OpenAIConfigured || (a.cfg.Hardcover.Enabled && !resp.HardcoverConfigured) {
		resp.Status = "degraded"
	}
	utils.WriteOK(w, resp)
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
