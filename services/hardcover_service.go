package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"cinereads/config"
	"cinereads/logger"
	"cinereads/metrics"
	"cinereads/models"
	"cinereads/utils"
)

const (
	hardcoverService  = "hardcover"
	hardcoverBookURL  = "https://hardcover.app/books/"
	hardcoverPerPage  = 10
	minMatchScore     = 10.0
	hardcoverUA       = "CineReads/1.0"
	hardcoverSortSpec = "activities_count:desc"
)

const searchBooksQuery = `query SearchBooks($searchQuery: String!, $perPage: Int!, $page: Int!) {
  search(query: $searchQuery, query_type: "books", per_page: $perPage, page: $page, sort: "` + hardcoverSortSpec + `") {
    results
    error
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		Search *struct {
			Results json.RawMessage `json:"results"`
			Error   *string         `json:"error"`
		} `json:"search"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type searchResults struct {
	Hits []struct {
		Document searchDocument `json:"document"`
	} `json:"hits"`
}

// searchDocument 搜索结果中的书目文档
type searchDocument struct {
	ID           flexInt  `json:"id"`
	Title        string   `json:"title"`
	AuthorNames  []string `json:"author_names"`
	Rating       *float64 `json:"rating"`
	RatingsCount *int     `json:"ratings_count"`
	UsersCount   *int     `json:"users_count"`
	Image        *struct {
		URL string `json:"url"`
	} `json:"image"`
	Slug        string   `json:"slug"`
	ReleaseYear *int     `json:"release_year"`
	Pages       *int     `json:"pages"`
	Description *string  `json:"description"`
	Genres      []string `json:"genres"`
	ISBNs       []string `json:"isbns"`
}

// flexInt 兼容字符串和数字两种形式的id
type flexInt struct {
	Value int
	Valid bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	f.Value, f.Valid = v, true
	return nil
}

// HardcoverClient Hardcover GraphQL书目查询客户端
type HardcoverClient struct {
	enabled       bool
	apiKey        string
	apiURL        string
	retryAttempts int

	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[[]searchDocument]
	authFailed atomic.Bool

	// backoff 第attempt次失败后的等待时间，测试中替换
	backoff func(attempt int, rateLimited bool) time.Duration
}

// NewHardcoverClient 根据配置创建书目客户端
func NewHardcoverClient(cfg *config.Config) *HardcoverClient {
	timeout := time.Duration(cfg.Hardcover.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.Hardcover.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	rpm := cfg.Hardcover.RequestsPerMinute
	if rpm <= 0 {
		rpm = 55
	}

	apiKey := strings.TrimSpace(cfg.Hardcover.APIKey)
	apiKey = strings.TrimSpace(strings.TrimPrefix(apiKey, "Bearer "))

	return &HardcoverClient{
		enabled:       cfg.Hardcover.Enabled,
		apiKey:        apiKey,
		apiURL:        cfg.Hardcover.APIURL,
		retryAttempts: attempts,
		httpClient:    &http.Client{Timeout: timeout},
		limiter:       rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 5),
		cb:            newBreaker[[]searchDocument](hardcoverService),
		backoff:       defaultBackoff,
	}
}

func defaultBackoff(attempt int, rateLimited bool) time.Duration {
	if rateLimited {
		return time.Duration(5*(attempt+1)) * time.Second
	}
	return time.Duration(attempt+1) * time.Second
}

// Configured 集成已启用、key有效且没有被上游拒绝过
func (c *HardcoverClient) Configured() bool {
	return c.enabled && c.apiKey != "" && !strings.HasSuffix(c.apiKey, "...") && !c.authFailed.Load()
}

// Lookup 按多种搜索策略查找书目，找不到合适匹配时返回 nil, nil
func (c *HardcoverClient) Lookup(ctx context.Context, title, author string) (*models.BookMetadata, error) {
	if !c.enabled {
		return nil, nil
	}
	if c.apiKey == "" || strings.HasSuffix(c.apiKey, "...") {
		return nil, &CatalogError{Title: title, Err: ErrNotConfigured}
	}

	strategies := searchStrategies(title, author)
	logger.Debug("开始查询书目", "title", title, "author", author, "strategies", len(strategies))

	for i, query := range strategies {
		docs, err := c.searchWithRetry(ctx, query)
		if err != nil {
			return nil, &CatalogError{Title: title, Err: err}
		}
		if best := bestMatch(docs, title, author); best != nil {
			logger.Debug("找到匹配书目", "title", title, "match", best.Title, "strategy", i+1)
			metrics.UpstreamRequests.WithLabelValues(hardcoverService, "found").Inc()
			return toMetadata(best), nil
		}
	}

	logger.Info("未找到书目元数据", "title", title, "author", author)
	metrics.UpstreamRequests.WithLabelValues(hardcoverService, "not_found").Inc()
	return nil, nil
}

// searchStrategies 依次尝试的搜索词，去重后保持顺序
func searchStrategies(title, author string) []string {
	title = utils.CollapseSpaces(strings.TrimSpace(title))
	author = utils.CollapseSpaces(strings.TrimSpace(author))

	var queries []string
	if author != "" {
		queries = append(queries, title+" "+author)
	}
	queries = append(queries, title)
	if cleaned := utils.RemoveStopWords(title); cleaned != "" {
		queries = append(queries, cleaned)
	}
	if author != "" {
		queries = append(queries, author+" "+title)
	}

	seen := make(map[string]bool, len(queries))
	out := queries[:0]
	for _, q := range queries {
		k := strings.ToLower(q)
		if q == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, q)
	}
	return out
}

// searchWithRetry 超时和429重试，认证失败和其他错误直接返回
func (c *HardcoverClient) searchWithRetry(ctx context.Context, query string) ([]searchDocument, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		docs, err := c.cb.Execute(func() ([]searchDocument, error) {
			return c.search(ctx, query)
		})
		metrics.UpstreamDuration.WithLabelValues(hardcoverService).Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.UpstreamRequests.WithLabelValues(hardcoverService, "success").Inc()
			return docs, nil
		}
		metrics.UpstreamRequests.WithLabelValues(hardcoverService, outcomeOf(err)).Inc()
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		retry, rateLimited := retryable(err)
		if !retry || attempt == c.retryAttempts-1 {
			break
		}

		wait := c.backoff(attempt, rateLimited)
		logger.Warn("书目查询失败，稍后重试", "query", query, "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

// retryable 返回是否应该重试以及是否因为限流
func retryable(err error) (retry bool, rateLimited bool) {
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests, se.Code == http.StatusTooManyRequests
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true, false
	}
	return errors.Is(err, context.DeadlineExceeded), false
}

// search 执行一次GraphQL搜索
func (c *HardcoverClient) search(ctx context.Context, query string) ([]searchDocument, error) {
	payload, err := json.Marshal(graphQLRequest{
		Query: searchBooksQuery,
		Variables: map[string]any{
			"searchQuery": query,
			"perPage":     hardcoverPerPage,
			"page":        1,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", hardcoverUA)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if !c.authFailed.Swap(true) {
			logger.Error("Hardcover拒绝了API Key，请检查 HARDCOVER_API_KEY", "status", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s status %d", ErrUpstreamAuth, hardcoverService, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, &statusError{Service: hardcoverService, Code: resp.StatusCode, Body: utils.Preview(string(body), 200)}
	}

	return parseSearchResponse(body)
}

// parseSearchResponse 解析搜索响应，results可能是JSON字符串也可能是对象
func parseSearchResponse(body []byte) ([]searchDocument, error) {
	var gr graphQLResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("解析搜索响应失败: %w", err)
	}
	if gr.Data.Search == nil {
		if len(gr.Errors) > 0 {
			return nil, fmt.Errorf("graphql: %s", gr.Errors[0].Message)
		}
		return nil, nil
	}
	if gr.Data.Search.Error != nil && *gr.Data.Search.Error != "" {
		return nil, fmt.Errorf("search: %s", *gr.Data.Search.Error)
	}

	raw := bytes.TrimSpace(gr.Data.Search.Results)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("解析搜索结果失败: %w", err)
		}
		raw = []byte(s)
	}

	var results searchResults
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("解析搜索结果失败: %w", err)
	}
	docs := make([]searchDocument, 0, len(results.Hits))
	for _, hit := range results.Hits {
		if hit.Document.Title != "" {
			docs = append(docs, hit.Document)
		}
	}
	return docs, nil
}

// scoreMatch 计算搜索结果与目标书目的匹配分数
func scoreMatch(doc *searchDocument, title, author string) float64 {
	bookTitle := utils.NormalizeText(doc.Title)
	want := utils.NormalizeText(title)
	if bookTitle == "" || want == "" {
		return 0
	}

	var score float64
	switch {
	case bookTitle == want:
		score = 100
	case strings.Contains(bookTitle, want):
		score = 90
	case strings.Contains(want, bookTitle):
		score = 85
	default:
		score = utils.Jaccard(utils.WordSet(want), utils.WordSet(bookTitle)) * 80
	}

	if author != "" && score > 0 {
		if authorMatches(doc.AuthorNames, author) {
			score += 20
		} else {
			score *= 0.7
		}
	}

	if doc.Rating != nil && *doc.Rating > 0 {
		score += min(5, *doc.Rating)
	}
	if doc.UsersCount != nil && *doc.UsersCount > 100 {
		score += min(3, float64(*doc.UsersCount)/1000)
	}
	return score
}

func authorMatches(names []string, author string) bool {
	want := utils.NormalizeText(author)
	wantWords := utils.WordSet(want)
	for _, name := range names {
		got := utils.NormalizeText(name)
		if got == "" {
			continue
		}
		if strings.Contains(got, want) || strings.Contains(want, got) {
			return true
		}
		for w := range utils.WordSet(got) {
			if wantWords[w] {
				return true
			}
		}
	}
	return false
}

// bestMatch 取分数最高的结果，同分时保留靠前（更热门）的结果，分数不超过阈值时返回nil
func bestMatch(docs []searchDocument, title, author string) *searchDocument {
	var (
		best      *searchDocument
		bestScore float64
	)
	for i := range docs {
		score := scoreMatch(&docs[i], title, author)
		if score > bestScore {
			best, bestScore = &docs[i], score
		}
	}
	if best == nil || bestScore <= minMatchScore {
		return nil
	}
	return best
}

// toMetadata 把搜索文档映射为书目元数据
func toMetadata(doc *searchDocument) *models.BookMetadata {
	meta := &models.BookMetadata{
		Title:           doc.Title,
		Rating:          doc.Rating,
		RatingsCount:    doc.RatingsCount,
		UsersCount:      doc.UsersCount,
		PublicationYear: doc.ReleaseYear,
		PageCount:       doc.Pages,
		Description:     doc.Description,
		Genres:          doc.Genres,
	}
	if len(doc.AuthorNames) > 0 {
		meta.Author = doc.AuthorNames[0]
	}
	if doc.Image != nil && doc.Image.URL != "" {
		u := doc.Image.URL
		meta.CoverURL = &u
	}
	if doc.Slug != "" {
		u := hardcoverBookURL + doc.Slug
		meta.CanonicalURL = &u
	}
	if len(doc.ISBNs) > 0 {
		isbn := doc.ISBNs[0]
		meta.ISBN = &isbn
	}
	if doc.ID.Valid {
		id := doc.ID.Value
		meta.HardcoverID = &id
	}
	return meta
}

var _ CatalogClient = (*HardcoverClient)(nil)
