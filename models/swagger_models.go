package models

// APIResponse 通用API响应，错误时使用
type APIResponse struct {
	Code    int         `json:"code" example:"1000"`
	Message string      `json:"message" example:"At least one movie is required"`
	Data    interface{} `json:"data,omitempty"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status              string `json:"status" example:"healthy"`
	CacheDirExists      bool   `json:"cache_dir_exists" example:"true"`
	OpenAIConfigured    bool   `json:"openai_configured" example:"true"`
	HardcoverConfigured bool   `json:"hardcover_configured" example:"true"`
	DebugMode           bool   `json:"debug_mode" example:"false"`
	CacheBackend        string `json:"cache_backend" example:"file"`
}

// MessageResponse 仅包含提示信息的响应
type MessageResponse struct {
	Message string `json:"message" example:"Cache cleared successfully"`
	Removed int    `json:"removed" example:"12"`
}

// TasteProfileResponse 口味画像接口响应
type TasteProfileResponse struct {
	Movies            []string      `json:"movies"`
	TasteProfile      *TasteProfile `json:"taste_profile"`
	AnalysisTimestamp float64       `json:"analysis_timestamp"`
	CacheHit          bool          `json:"cache_hit"`
}

// RootResponse 根路径响应
type RootResponse struct {
	Message string `json:"message" example:"CineReads API is running"`
	Version string `json:"version" example:"1.0.0"`
	Docs    string `json:"docs" example:"/swagger/index.html"`
}
