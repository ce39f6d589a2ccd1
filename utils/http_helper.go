package utils

import (
	"github.com/goccy/go-json"
	"net/http"

	"cinereads/models"
)

// WriteJSON 以指定状态码写入JSON响应
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(data)
}

// WriteOK 写入200响应
func WriteOK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteErrorResponse 写入错误响应，消息取自错误码表
func WriteErrorResponse(w http.ResponseWriter, status, code int, data interface{}) {
	WriteJSON(w, status, models.NewErrorResponse(code, data))
}

// WriteCustomErrorResponse 写入自定义错误消息的响应
func WriteCustomErrorResponse(w http.ResponseWriter, status, code int, message string, data interface{}) {
	WriteJSON(w, status, models.NewCustomErrorResponse(code, message, data))
}

// DecodeJSONBody 解析请求体并限制最大字节数，未知字段会被忽略
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	return json.NewDecoder(r.Body).Decode(dst)
}
