package services

import (
	"context"

	"cinereads/models"
)

// CompletionClient 文本补全服务
type CompletionClient interface {
	// Suggest 为单部电影生成候选书目，失败时返回 *CompletionError
	Suggest(ctx context.Context, movie string, prefs *models.Preferences) ([]models.BookCandidate, error)

	// SuggestUnified 根据整组电影的口味画像生成一份书单，画像解析不出时返回nil画像
	SuggestUnified(ctx context.Context, movies []string, prefs *models.Preferences) (*models.TasteProfile, []models.BookCandidate, error)

	// AnalyzeTasteProfile 分析一组电影体现的整体口味
	AnalyzeTasteProfile(ctx context.Context, movies []string, prefs *models.Preferences) (*models.TasteProfile, error)
}

// CatalogClient 书目元数据查询
type CatalogClient interface {
	// Lookup 查不到时返回 nil, nil；网络或认证失败返回 *CatalogError
	Lookup(ctx context.Context, title, author string) (*models.BookMetadata, error)
}

// CredentialReporter 报告凭证是否已配置且未被上游拒绝，供健康检查使用
type CredentialReporter interface {
	Configured() bool
}
