package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 默认配置文件路径，可通过 CONFIG_FILE 覆盖
const defaultConfigFile = "config.yaml"

type Config struct {
	Server struct {
		Host                    string `yaml:"host"`
		Port                    int    `yaml:"port"`
		Addr                    string `yaml:"-"` // 不从配置文件读取，而是在加载后计算
		ReadTimeoutSec          int    `yaml:"read_timeout_sec"`
		WriteTimeoutSec         int    `yaml:"write_timeout_sec"`
		IdleTimeoutSec          int    `yaml:"idle_timeout_sec"`
		ShutdownTimeoutSec      int    `yaml:"shutdown_timeout_sec"`
		MaxBodyBytes            int64  `yaml:"max_body_bytes"`
		AllowMissingCredentials bool   `yaml:"allow_missing_credentials"` // 缺少密钥时降级而不是拒绝启动
	} `yaml:"server"`
	OpenAI struct {
		APIKey      string  `yaml:"api_key"`
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		TimeoutSec  int     `yaml:"timeout_sec"`
	} `yaml:"openai"`
	Hardcover struct {
		Enabled           bool   `yaml:"enabled"`
		APIKey            string `yaml:"api_key"`
		APIURL            string `yaml:"api_url"`
		TimeoutSec        int    `yaml:"timeout_sec"`
		RetryAttempts     int    `yaml:"retry_attempts"`
		RequestsPerMinute int    `yaml:"requests_per_minute"` // 官方限制为60次/分钟
	} `yaml:"hardcover"`
	Cache struct {
		Backend                   string `yaml:"backend"` // file / badger / memory / mysql
		Dir                       string `yaml:"dir"`
		ExpireSeconds             int    `yaml:"expire_seconds"`
		BookExpireSeconds         int    `yaml:"book_expire_seconds"`
		TasteProfileExpireSeconds int    `yaml:"taste_profile_expire_seconds"`
		MemoryMaxEntries          int    `yaml:"memory_max_entries"`
		SweepIntervalSec          int    `yaml:"sweep_interval_sec"`
	} `yaml:"cache"`
	Recommendation struct {
		MaxMoviesPerRequest       int  `yaml:"max_movies_per_request"`
		BooksPerRecommendation    int  `yaml:"books_per_recommendation"`
		MaxBooksPerRecommendation int  `yaml:"max_books_per_recommendation"`
		MaxConcurrentMovies       int  `yaml:"max_concurrent_movies"`
		MaxConcurrentBookRequests int  `yaml:"max_concurrent_book_requests"`
		EnableInsights            bool `yaml:"enable_insights"`
		// DefaultType 未指定recommendation_type时使用，individual或unified
		DefaultType string `yaml:"default_type"`
	} `yaml:"recommendation"`
	CORS struct {
		AllowedOrigins        []string `yaml:"allowed_origins"`
		AllowedOriginPatterns []string `yaml:"allowed_origin_patterns"` // 正则，例如 ^https://.*\.vercel\.app$
	} `yaml:"cors"`
	RateLimit struct {
		Requests  int `yaml:"requests"`
		WindowSec int `yaml:"window_sec"`
	} `yaml:"rate_limit"`
	Log struct {
		Level    string `yaml:"level"`
		Format   string `yaml:"format"`
		Output   string `yaml:"output"`
		FilePath string `yaml:"file_path"`
	} `yaml:"log"`

	DB struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		Username        string `yaml:"username"`
		Password        string `yaml:"password"`
		Database        string `yaml:"database"`
		Charset         string `yaml:"charset"`
		ParseTime       bool   `yaml:"parse_time"`
		DSN             string `yaml:"-"`                 // 不从配置文件读取，而是在加载后计算
		MaxOpenConns    int    `yaml:"max_open_conns"`    // 最大打开连接数
		MaxIdleConns    int    `yaml:"max_idle_conns"`    // 最大空闲连接数
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 连接最大生命周期（分钟）
	} `yaml:"database"`
	Debug struct {
		Enabled bool `yaml:"enabled"` // 是否启用debug模式
	} `yaml:"debug"`
	Scheduler struct {
		CheckIntervalSec int `yaml:"check_interval_sec"` // 调度器检查间隔（秒）
		CompactHour      int `yaml:"compact_hour"`       // 每天压缩缓存的小时（0-23）
		CompactMinute    int `yaml:"compact_minute"`     // 每天压缩缓存的分钟（0-59）
	} `yaml:"scheduler"`
}

// Default 返回带默认值的配置
func Default() *Config {
	var cfg Config

	cfg.Server.Port = 8000
	cfg.Server.ReadTimeoutSec = 15
	cfg.Server.WriteTimeoutSec = 120
	cfg.Server.IdleTimeoutSec = 60
	cfg.Server.ShutdownTimeoutSec = 15
	cfg.Server.MaxBodyBytes = 64 << 10

	cfg.OpenAI.BaseURL = "https://api.openai.com"
	cfg.OpenAI.Model = "gpt-4o-mini"
	cfg.OpenAI.MaxTokens = 1200
	cfg.OpenAI.Temperature = 0.7
	cfg.OpenAI.TimeoutSec = 30

	cfg.Hardcover.Enabled = true
	cfg.Hardcover.APIURL = "https://api.hardcover.app/v1/graphql"
	cfg.Hardcover.TimeoutSec = 10
	cfg.Hardcover.RetryAttempts = 3
	cfg.Hardcover.RequestsPerMinute = 55

	cfg.Cache.Backend = "file"
	cfg.Cache.Dir = "cache"
	cfg.Cache.ExpireSeconds = 3600
	cfg.Cache.BookExpireSeconds = 86400
	cfg.Cache.TasteProfileExpireSeconds = 7200
	cfg.Cache.MemoryMaxEntries = 2048
	cfg.Cache.SweepIntervalSec = 600

	cfg.Recommendation.MaxMoviesPerRequest = 5
	cfg.Recommendation.BooksPerRecommendation = 5
	cfg.Recommendation.MaxBooksPerRecommendation = 8
	cfg.Recommendation.MaxConcurrentMovies = 5
	cfg.Recommendation.MaxConcurrentBookRequests = 10
	cfg.Recommendation.EnableInsights = true
	cfg.Recommendation.DefaultType = "individual"

	cfg.CORS.AllowedOrigins = []string{
		"http://localhost:3000",
		"http://localhost:3001",
		"https://cinereads.vercel.app",
	}
	cfg.CORS.AllowedOriginPatterns = []string{`^https://.*\.vercel\.app$`}

	cfg.RateLimit.Requests = 30
	cfg.RateLimit.WindowSec = 60

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stdout"

	cfg.DB.Port = 3306
	cfg.DB.Charset = "utf8mb4"
	cfg.DB.ParseTime = true

	cfg.Scheduler.CheckIntervalSec = 30
	cfg.Scheduler.CompactHour = 4

	return &cfg
}

func Load() *Config {
	// 首先尝试加载.env文件中的环境变量
	_ = godotenv.Load() // 忽略错误，如果.env文件不存在，继续使用系统环境变量

	cfg := Default()

	path := getenv("CONFIG_FILE", defaultConfigFile)
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Printf("Error loading %s: %v, falling back to environment variables", path, err)
			cfg = Default()
		} else {
			log.Printf("Loading configuration from %s", path)
		}
	}

	applyEnv(cfg)
	cfg.finalize()
	return cfg
}

// applyEnv 环境变量优先级高于配置文件，敏感信息只应通过环境变量提供
func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		cfg.Server.Host = host
	}

	// 外部服务密钥
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("HARDCOVER_API_KEY"); apiKey != "" {
		cfg.Hardcover.APIKey = apiKey
	}
	cfg.OpenAI.Model = getenv("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.BaseURL = getenv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.MaxTokens = getenvInt("GPT_MAX_TOKENS", cfg.OpenAI.MaxTokens)
	cfg.OpenAI.Temperature = getenvFloat("GPT_TEMPERATURE", cfg.OpenAI.Temperature)
	cfg.Hardcover.Enabled = getenvBool("ENABLE_HARDCOVER_INTEGRATION", cfg.Hardcover.Enabled)

	// 缓存
	cfg.Cache.Backend = getenv("CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.Dir = getenv("CACHE_DIR", cfg.Cache.Dir)
	cfg.Cache.ExpireSeconds = getenvInt("CACHE_EXPIRE_SECONDS", cfg.Cache.ExpireSeconds)
	cfg.Cache.BookExpireSeconds = getenvInt("BOOK_CACHE_EXPIRE_SECONDS", cfg.Cache.BookExpireSeconds)
	cfg.Cache.TasteProfileExpireSeconds = getenvInt("TASTE_PROFILE_CACHE_EXPIRE_SECONDS", cfg.Cache.TasteProfileExpireSeconds)

	cfg.Recommendation.MaxMoviesPerRequest = getenvInt("MAX_MOVIES_PER_REQUEST", cfg.Recommendation.MaxMoviesPerRequest)
	cfg.Recommendation.BooksPerRecommendation = getenvInt("BOOKS_PER_RECOMMENDATION", cfg.Recommendation.BooksPerRecommendation)
	cfg.Recommendation.DefaultType = getenv("DEFAULT_RECOMMENDATION_TYPE", cfg.Recommendation.DefaultType)

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORS.AllowedOrigins = splitAndTrim(origins)
	}

	cfg.Debug.Enabled = getenvBool("DEBUG", cfg.Debug.Enabled)
	cfg.Log.Level = getenv("LOG_LEVEL", cfg.Log.Level)

	// 数据库用户名和密码
	if envUsername := os.Getenv("DATABASE_USERNAME"); envUsername != "" {
		cfg.DB.Username = envUsername
	}
	if envPassword := os.Getenv("DATABASE_PASSWORD"); envPassword != "" {
		cfg.DB.Password = envPassword
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		cfg.DB.DSN = dsn
	}
}

// finalize 计算派生字段
func (cfg *Config) finalize() {
	cfg.Server.Addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))

	// 计算 DB.DSN 字段
	if cfg.DB.DSN == "" && cfg.DB.Host != "" {
		if cfg.DB.Charset == "" {
			cfg.DB.Charset = "utf8mb4"
		}
		parseTime := ""
		if cfg.DB.ParseTime {
			parseTime = "&parseTime=true"
		}
		cfg.DB.DSN = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s%s",
			cfg.DB.Username,
			cfg.DB.Password,
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.Database,
			cfg.DB.Charset,
			parseTime)
	}
}

// OpenAIConfigured 是否配置了补全服务密钥
func (cfg *Config) OpenAIConfigured() bool {
	return strings.TrimSpace(cfg.OpenAI.APIKey) != ""
}

// HardcoverConfigured 是否配置了书目库密钥，截断的密钥（以...结尾）视为未配置
func (cfg *Config) HardcoverConfigured() bool {
	key := strings.TrimSpace(cfg.Hardcover.APIKey)
	return key != "" && !strings.HasSuffix(key, "...")
}

// Validate 启动时校验配置，缺少密钥时直接失败，除非允许降级运行
func (cfg *Config) Validate() error {
	var errs []error

	if !cfg.Server.AllowMissingCredentials {
		if !cfg.OpenAIConfigured() {
			errs = append(errs, errors.New("OPENAI_API_KEY is required"))
		}
		if cfg.Hardcover.Enabled && !cfg.HardcoverConfigured() {
			errs = append(errs, errors.New("HARDCOVER_API_KEY is required"))
		}
	}

	switch cfg.Cache.Backend {
	case "file", "badger", "memory":
	case "mysql":
		if cfg.DB.DSN == "" {
			errs = append(errs, errors.New("cache backend mysql requires database settings or DB_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend))
	}

	if cfg.Recommendation.MaxMoviesPerRequest <= 0 {
		errs = append(errs, errors.New("recommendation.max_movies_per_request must be positive"))
	}
	switch cfg.Recommendation.DefaultType {
	case "individual", "unified":
	default:
		errs = append(errs, fmt.Errorf("unknown recommendation.default_type %q", cfg.Recommendation.DefaultType))
	}
	if cfg.Cache.ExpireSeconds <= 0 || cfg.Cache.BookExpireSeconds <= 0 || cfg.Cache.TasteProfileExpireSeconds <= 0 {
		errs = append(errs, errors.New("cache expiry seconds must be positive"))
	}
	if cfg.OpenAI.Temperature < 0 || cfg.OpenAI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("openai.temperature %.2f out of range [0,2]", cfg.OpenAI.Temperature))
	}

	return errors.Join(errs...)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("invalid integer for %s: %q, using %d", k, v, def)
	}
	return def
}

func getenvFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid float for %s: %q, using %v", k, v, def)
	}
	return def
}

func getenvBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("invalid bool for %s: %q, using %v", k, v, def)
	}
	return def
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
