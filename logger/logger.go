package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cinereads/config"
)

// Logger 全局日志记录器，未初始化时输出到标准错误
var Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Options 日志配置
type Options struct {
	Level    string
	Format   string
	Output   string
	FilePath string
}

// ParseLevel 解析日志级别，无法识别时返回info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New 根据配置创建slog日志记录器
func New(opts Options) (*slog.Logger, error) {
	// 创建日志目录
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err != nil {
			return nil, err
		}
	}

	// 设置输出目标
	var writer io.Writer
	switch strings.ToLower(opts.Output) {
	case "file":
		file, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		writer = file
	case "both":
		file, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		writer = io.MultiWriter(os.Stdout, file)
	default:
		writer = os.Stdout
	}

	return NewWithWriter(writer, opts), nil
}

// NewWithWriter 使用指定输出创建日志记录器，测试中写入缓冲区使用
func NewWithWriter(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// Init 使用配置文件初始化日志系统，debug模式强制使用debug级别
func Init(cfg *config.Config) error {
	opts := Options{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}
	if cfg.Debug.Enabled {
		opts.Level = "debug"
	}

	l, err := New(opts)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// SetLogger 替换全局Logger并设为slog默认值
func SetLogger(l *slog.Logger) {
	Logger = l
	slog.SetDefault(l)
}

// With 返回带固定字段的子日志记录器
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}

// Debug 记录调试级别的日志
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info 记录信息级别的日志
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn 记录警告级别的日志
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error 记录错误级别的日志
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
