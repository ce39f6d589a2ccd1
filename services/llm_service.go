package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"cinereads/config"
	"cinereads/logger"
	"cinereads/metrics"
	"cinereads/models"
	"cinereads/utils"
)

const openAIService = "openai"

// 口味画像的输出比推荐短
const tasteProfileMaxTokens = 800

// OpenAI兼容接口的请求和响应结构
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// OpenAIClient 调用OpenAI兼容的chat/completions接口生成候选书目
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	books       int
	maxBooks    int

	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[string]
	authFailed atomic.Bool
}

// NewOpenAIClient 根据配置创建补全客户端，未配置api key时所有调用都返回 ErrNotConfigured
func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	timeout := time.Duration(cfg.OpenAI.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	maxBooks := cfg.Recommendation.MaxBooksPerRecommendation
	if maxBooks <= 0 {
		maxBooks = 8
	}
	books := cfg.Recommendation.BooksPerRecommendation
	if books <= 0 {
		books = 5
	}
	if books > maxBooks {
		books = maxBooks
	}

	return &OpenAIClient{
		apiKey:      strings.TrimSpace(cfg.OpenAI.APIKey),
		baseURL:     strings.TrimRight(cfg.OpenAI.BaseURL, "/"),
		model:       cfg.OpenAI.Model,
		maxTokens:   cfg.OpenAI.MaxTokens,
		temperature: cfg.OpenAI.Temperature,
		books:       books,
		maxBooks:    maxBooks,
		httpClient:  &http.Client{Timeout: timeout},
		cb:          newBreaker[string](openAIService),
	}
}

// Configured api key存在且没有被上游拒绝过
func (c *OpenAIClient) Configured() bool {
	return c.apiKey != "" && !c.authFailed.Load()
}

// Suggest 为单部电影生成候选书目
func (c *OpenAIClient) Suggest(ctx context.Context, movie string, prefs *models.Preferences) ([]models.BookCandidate, error) {
	prompt := buildMoviePrompt(movie, prefs, c.books)
	content, err := c.chat(ctx, systemPrompt, prompt, c.maxTokens)
	if err != nil {
		return nil, &CompletionError{Movie: movie, Err: err}
	}

	candidates, err := ParseCandidates(content, c.maxBooks)
	if err != nil {
		logger.Warn("解析模型输出失败", "movie", movie, "error", err, "content_preview", utils.Preview(content, 200))
		return nil, &CompletionError{Movie: movie, Err: err}
	}
	logger.Info("成功获取候选书目", "movie", movie, "count", len(candidates))
	return candidates, nil
}

// SuggestUnified 一次调用为整组电影生成口味画像和书单
func (c *OpenAIClient) SuggestUnified(ctx context.Context, movies []string, prefs *models.Preferences) (*models.TasteProfile, []models.BookCandidate, error) {
	label := strings.Join(movies, ", ")
	content, err := c.chat(ctx, unifiedSystemPrompt, buildUnifiedPrompt(movies, prefs, c.books), c.maxTokens)
	if err != nil {
		return nil, nil, &CompletionError{Movie: label, Err: err}
	}

	profile, candidates, err := ParseUnified(content, c.maxBooks)
	if err != nil {
		logger.Warn("解析统一推荐输出失败", "movies", label, "error", err, "content_preview", utils.Preview(content, 200))
		return nil, nil, &CompletionError{Movie: label, Err: err}
	}
	logger.Info("成功获取统一推荐书目", "movies", len(movies), "count", len(candidates), "has_profile", profile != nil)
	return profile, candidates, nil
}

// AnalyzeTasteProfile 分析一组电影的整体口味
func (c *OpenAIClient) AnalyzeTasteProfile(ctx context.Context, movies []string, prefs *models.Preferences) (*models.TasteProfile, error) {
	label := strings.Join(movies, ", ")
	content, err := c.chat(ctx, tasteProfileSystemPrompt, buildTasteProfilePrompt(movies, prefs), tasteProfileMaxTokens)
	if err != nil {
		return nil, &CompletionError{Movie: label, Err: err}
	}
	profile, err := ParseTasteProfile(content)
	if err != nil {
		return nil, &CompletionError{Movie: label, Err: err}
	}
	return profile, nil
}

// chat 经过熔断器发送一次补全请求，返回模型输出文本
func (c *OpenAIClient) chat(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	start := time.Now()
	content, err := c.cb.Execute(func() (string, error) {
		return c.callDirectly(ctx, system, prompt, maxTokens)
	})
	metrics.UpstreamDuration.WithLabelValues(openAIService).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequests.WithLabelValues(openAIService, outcomeOf(err)).Inc()
	return content, err
}

// callDirectly 直接调用补全接口
func (c *OpenAIClient) callDirectly(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	logger.Debug("补全请求提示词预览", "model", c.model,
		"estimated_tokens", utils.EstimateTokens(system)+utils.EstimateTokens(prompt),
		"prompt_preview", utils.Preview(prompt, 200))

	reqBody := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:      maxTokens,
		Temperature:    c.temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := c.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		logger.Error("发送补全请求失败", "error", err, "duration_ms", duration.Milliseconds())
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if !c.authFailed.Swap(true) {
			logger.Error("补全服务拒绝了API Key，请检查 OPENAI_API_KEY", "status", resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %s status %d", ErrUpstreamAuth, openAIService, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		logger.Error("补全API请求失败", "status", resp.StatusCode, "response", utils.Preview(string(body), 500))
		return "", &statusError{Service: openAIService, Code: resp.StatusCode, Body: utils.Preview(string(body), 200)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("解析补全响应失败: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrMalformedCompletion)
	}

	content := chatResp.Choices[0].Message.Content
	logger.Info("成功获取补全响应",
		"duration_ms", duration.Milliseconds(),
		"tokens_prompt", chatResp.Usage.PromptTokens,
		"tokens_completion", chatResp.Usage.CompletionTokens,
		"finish_reason", chatResp.Choices[0].FinishReason)
	logger.Debug("补全响应内容预览", "content_preview", utils.Preview(content, 200))
	return content, nil
}

var _ CompletionClient = (*OpenAIClient)(nil)
