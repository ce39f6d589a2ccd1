package services

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamAuth 上游服务拒绝了凭证（HTTP 401/403）
	ErrUpstreamAuth = errors.New("upstream rejected credentials")
	// ErrNotConfigured 缺少凭证，客户端处于始终失败模式
	ErrNotConfigured = errors.New("client not configured")
	// ErrMalformedCompletion 模型输出无法解析为候选书目
	ErrMalformedCompletion = errors.New("malformed completion output")

	// ErrNoMovies 请求中没有电影
	ErrNoMovies = errors.New("no movies")
	// ErrTooManyMovies 电影数量超过上限
	ErrTooManyMovies = errors.New("too many movies")
)

// ValidationError 请求参数不合法，直接返回给调用方
type ValidationError struct {
	Field   string
	Message string
	Err     error // 可选，用于区分具体原因
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CompletionError 某部电影的补全调用失败
type CompletionError struct {
	Movie string
	Err   error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion for %q: %v", e.Movie, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// CatalogError 书目库查询失败
type CatalogError struct {
	Title string
	Err   error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog lookup for %q: %v", e.Title, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// statusError 上游返回了非2xx状态码
type statusError struct {
	Service string
	Code    int
	Body    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s API请求失败: %d - %s", e.Service, e.Code, e.Body)
}
