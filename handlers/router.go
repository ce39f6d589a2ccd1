package handlers

import (
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"cinereads/config"
	_ "cinereads/docs" // 导入 swagger 文档
	"cinereads/logger"
	"cinereads/models"
	"cinereads/utils"
)

// NewRouter 创建带有通用中间件的路由并注册所有接口
func NewRouter(cfg *config.Config, api *API) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(cfg))

	RegisterRoutes(r, cfg, api)
	return r
}

// corsHandler 允许配置的前端域名以及匹配正则的预览域名
func corsHandler(cfg *config.Config) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(cfg.CORS.AllowedOrigins))
	for _, o := range cfg.CORS.AllowedOrigins {
		allowed[o] = true
	}
	var patterns []*regexp.Regexp
	for _, p := range cfg.CORS.AllowedOriginPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			logger.Warn("忽略无效的CORS正则", "pattern", p, "error", err)
			continue
		}
		patterns = append(patterns, re)
	}

	methods := []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	headers := []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}

	// 通配符只返回 "*"，不允许携带凭证
	if allowed["*"] {
		return cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: methods,
			AllowedHeaders: headers,
			MaxAge:         300,
		})
	}

	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			if allowed[origin] {
				return true
			}
			for _, re := range patterns {
				if re.MatchString(origin) {
					return true
				}
			}
			return false
		},
		AllowedMethods:   methods,
		AllowedHeaders:   headers,
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// rateLimiter 按IP限流，超限时返回统一的错误结构
func rateLimiter(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg.RateLimit.Requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := time.Duration(cfg.RateLimit.WindowSec) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(cfg.RateLimit.Requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			utils.WriteErrorResponse(w, http.StatusTooManyRequests, models.CodeRateLimited, nil)
		}),
	)
}

func RegisterRoutes(r chi.Router, cfg *config.Config, api *API) {
	// Swagger 文档
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // Swagger JSON 的 URL
	))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", api.Root)
	r.Get("/health", api.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimiter(cfg))

		r.Post("/recommend", api.Recommend)
		r.Post("/regenerate", api.Regenerate)
		r.Get("/taste-profile", api.TasteProfile)

		r.Get("/cache/stats", api.CacheStats)
		r.Delete("/cache/clear", api.ClearCache)
	})
}
