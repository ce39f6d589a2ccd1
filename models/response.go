package models

// 响应码定义
const (
	// 成功
	CodeSuccess = 0

	// 客户端错误 (1000-1999)
	CodeInvalidParams   = 1000 // 无效的参数
	CodeMissingParams   = 1001 // 缺少必要参数
	CodeTooManyMovies   = 1002 // 电影数量超过上限
	CodeUnknownCacheTyp = 1003 // 未知的缓存类型
	CodeRateLimited     = 1004 // 请求过于频繁

	// 服务端错误 (2000-2999)
	CodeServerError        = 2000 // 服务器内部错误
	CodeCacheError         = 2001 // 缓存错误
	CodeRecommendGenError  = 2003 // 推荐生成错误
	CodeThirdPartyAPIError = 2005 // 第三方API错误
)

// 错误码对应的消息，前端直接展示，因此使用英文
var CodeMessages = map[int]string{
	CodeSuccess:            "success",
	CodeInvalidParams:      "invalid parameters",
	CodeMissingParams:      "missing required parameters",
	CodeTooManyMovies:      "too many movies in request",
	CodeUnknownCacheTyp:    "unknown cache type",
	CodeRateLimited:        "too many requests",
	CodeServerError:        "internal server error",
	CodeCacheError:         "cache error",
	CodeRecommendGenError:  "recommendation generation failed",
	CodeThirdPartyAPIError: "third-party API error",
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Code:    CodeSuccess,
		Message: CodeMessages[CodeSuccess],
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, data interface{}) APIResponse {
	message, exists := CodeMessages[code]
	if !exists {
		message = "unknown error"
	}
	return APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewCustomErrorResponse 创建自定义错误消息的响应
func NewCustomErrorResponse(code int, message string, data interface{}) APIResponse {
	return APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}
