// Package docs 由 swag 根据接口注释生成，修改注释后重新执行 swag init
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://swagger.io/terms/",
        "contact": {
            "name": "API Support",
            "url": "http://www.swagger.io/support",
            "email": "support@swagger.io"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["系统"],
                "summary": "服务信息",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.RootResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "报告缓存目录与外部服务凭证状态，凭证缺失或被拒绝时 status 为 degraded",
                "produces": ["application/json"],
                "tags": ["系统"],
                "summary": "健康检查",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.HealthResponse"}}
                }
            }
        },
        "/api/recommend": {
            "post": {
                "description": "为每部电影生成主题相近的书籍推荐，并补充书目元数据。相同的电影列表和偏好会命中缓存",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["推荐"],
                "summary": "根据电影列表推荐书籍",
                "parameters": [
                    {"description": "电影列表与偏好", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.RecommendationRequest"}},
                    {"type": "boolean", "description": "是否返回统计洞察", "name": "include_insights", "in": "query"},
                    {"enum": ["individual", "unified"], "type": "string", "description": "推荐方式", "name": "recommendation_type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"$ref": "#/definitions/models.EnhancedRecommendationResponse"}},
                    "400": {"description": "参数错误", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "429": {"description": "请求过于频繁", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "500": {"description": "服务器错误", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/regenerate": {
            "post": {
                "description": "跳过缓存读取重新生成推荐，并覆盖缓存中的旧结果",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["推荐"],
                "summary": "重新生成推荐",
                "parameters": [
                    {"description": "电影列表与偏好", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.RecommendationRequest"}},
                    {"type": "boolean", "description": "是否返回统计洞察", "name": "include_insights", "in": "query"},
                    {"enum": ["individual", "unified"], "type": "string", "description": "推荐方式", "name": "recommendation_type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"$ref": "#/definitions/models.EnhancedRecommendationResponse"}},
                    "400": {"description": "参数错误", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "429": {"description": "请求过于频繁", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "500": {"description": "服务器错误", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/taste-profile": {
            "get": {
                "description": "分析一组电影共同体现的主题、叙事风格与情感基调。分析失败时返回通用画像",
                "produces": ["application/json"],
                "tags": ["推荐"],
                "summary": "分析电影列表体现的口味",
                "parameters": [
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "description": "电影标题，可重复", "name": "movies", "in": "query", "required": true},
                    {"type": "string", "description": "JSON格式的偏好", "name": "preferences", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"$ref": "#/definitions/models.TasteProfileResponse"}},
                    "400": {"description": "参数错误", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "500": {"description": "服务器错误", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/cache/stats": {
            "get": {
                "description": "按缓存类型统计条目数和占用字节数",
                "produces": ["application/json"],
                "tags": ["缓存"],
                "summary": "缓存统计",
                "responses": {
                    "200": {"description": "成功", "schema": {"$ref": "#/definitions/models.CacheStats"}},
                    "500": {"description": "服务器错误", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/cache/clear": {
            "delete": {
                "description": "清空指定类型的缓存，不传 cache_type 时清空全部",
                "produces": ["application/json"],
                "tags": ["缓存"],
                "summary": "清空缓存",
                "parameters": [
                    {"enum": ["recommendations", "books", "taste_profiles"], "type": "string", "description": "缓存类型", "name": "cache_type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"$ref": "#/definitions/models.MessageResponse"}},
                    "400": {"description": "未知的缓存类型", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "500": {"description": "服务器错误", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.APIResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 1000},
                "data": {},
                "message": {"type": "string", "example": "At least one movie is required"}
            }
        },
        "models.Preferences": {
            "type": "object",
            "properties": {
                "mood": {"type": "string", "enum": ["light", "serious", "dark", "uplifting", "thoughtful", "adventurous", "romantic", "mysterious"]},
                "pace": {"type": "string", "enum": ["slow", "moderate", "fast"]},
                "genre_preferences": {"type": "array", "items": {"type": "string"}},
                "genre_blocklist": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.RecommendationRequest": {
            "type": "object",
            "required": ["movies"],
            "properties": {
                "movies": {"type": "array", "minItems": 1, "items": {"type": "string"}},
                "preferences": {"$ref": "#/definitions/models.Preferences"}
            }
        },
        "models.BookRecommendation": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "author": {"type": "string"},
                "reason": {"type": "string"},
                "rating": {"type": "number"},
                "cover_url": {"type": "string"},
                "hardcover_url": {"type": "string"},
                "taste_match_score": {"type": "number"},
                "primary_appeal": {"type": "string"},
                "genre_tags": {"type": "array", "items": {"type": "string"}},
                "isbn": {"type": "string"},
                "publication_year": {"type": "integer"},
                "page_count": {"type": "integer"},
                "hardcover_id": {"type": "integer"},
                "users_count": {"type": "integer"},
                "description": {"type": "string"}
            }
        },
        "models.RecommendationResponse": {
            "type": "object",
            "properties": {
                "movie": {"type": "string"},
                "books": {"type": "array", "items": {"$ref": "#/definitions/models.BookRecommendation"}},
                "taste_profile": {"$ref": "#/definitions/models.TasteProfile"},
                "recommendation_type": {"type": "string"}
            }
        },
        "models.RecommendationInsights": {
            "type": "object",
            "properties": {
                "total_movies_analyzed": {"type": "integer"},
                "dominant_themes": {"type": "array", "items": {"type": "string"}},
                "genre_diversity_score": {"type": "number"},
                "recommendation_confidence": {"type": "number"},
                "alternative_suggestions": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.EnhancedRecommendationResponse": {
            "type": "object",
            "properties": {
                "recommendations": {"type": "array", "items": {"$ref": "#/definitions/models.RecommendationResponse"}},
                "insights": {"$ref": "#/definitions/models.RecommendationInsights"},
                "processing_time": {"type": "number"},
                "cache_hit": {"type": "boolean"}
            }
        },
        "models.TasteProfile": {
            "type": "object",
            "properties": {
                "themes": {"type": "array", "items": {"type": "string"}},
                "narrative_style": {"type": "string"},
                "emotional_tone": {"type": "string"},
                "genre_fusion": {"type": "string"},
                "character_preferences": {"type": "string"},
                "artistic_sensibilities": {"type": "string"},
                "confidence_score": {"type": "number"}
            }
        },
        "models.TasteProfileResponse": {
            "type": "object",
            "properties": {
                "movies": {"type": "array", "items": {"type": "string"}},
                "taste_profile": {"$ref": "#/definitions/models.TasteProfile"},
                "analysis_timestamp": {"type": "number"},
                "cache_hit": {"type": "boolean"}
            }
        },
        "models.CacheTypeStats": {
            "type": "object",
            "properties": {
                "entries": {"type": "integer"},
                "size_bytes": {"type": "integer"}
            }
        },
        "models.CacheStats": {
            "type": "object",
            "properties": {
                "backend": {"type": "string"},
                "total_entries": {"type": "integer"},
                "total_size_bytes": {"type": "integer"},
                "by_type": {"type": "object", "additionalProperties": {"$ref": "#/definitions/models.CacheTypeStats"}}
            }
        },
        "models.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Cache cleared successfully"},
                "removed": {"type": "integer", "example": 12}
            }
        },
        "models.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "healthy"},
                "cache_dir_exists": {"type": "boolean"},
                "openai_configured": {"type": "boolean"},
                "hardcover_configured": {"type": "boolean"},
                "debug_mode": {"type": "boolean"},
                "cache_backend": {"type": "string", "example": "file"}
            }
        },
        "models.RootResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "CineReads API is running"},
                "version": {"type": "string", "example": "1.0.0"},
                "docs": {"type": "string", "example": "/swagger/index.html"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "CineReads API",
	Description:      "根据电影口味推荐书籍：调用大模型生成候选书目，再用 Hardcover 书目库补充元数据，结果按电影列表和偏好缓存",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
