package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"


	"cinereads/cache"
	"cinereads/config"
	"cinereads/db"
	"cinereads/handlers"
	"cinereads/logger"
	"cinereads/models"
	"cinereads/repository"
	"cinereads/scheduler"
	"cinereads/services"
)

func main() {
	cfg := config.Load()

	// 初始化日志系统
	if err := logger.Init(cfg); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	logger.Info("日志系统初始化成功", "level", cfg.Log.Level, "format", cfg.Log.Format, "output", cfg.Log.Output)

	if err := cfg.Validate(); err != nil {
		logger.Error("配置校验失败", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, closeBackend := openStore(ctx, cfg)
	responseCache := cache.New(store,
		cache.WithTTL(models.CacheTypeRecommendations, time.Duration(cfg.Cache.ExpireSeconds)*time.Second),
		cache.WithTTL(models.CacheTypeBooks, time.Duration(cfg.Cache.BookExpireSeconds)*time.Second),
		cache.WithTTL(models.CacheTypeTasteProfiles, time.Duration(cfg.Cache.TasteProfileExpireSeconds)*time.Second),
		cache.WithLogger(logger.With("component", "cache")),
	)
	logger.Info("缓存初始化成功", "backend", responseCache.Backend())

	openai := services.NewOpenAIClient(cfg)
	hardcover := services.NewHardcoverClient(cfg)
	if !openai.Configured() {
		logger.Warn("未配置OPENAI_API_KEY，推荐请求将返回空结果")
	}
	if cfg.Hardcover.Enabled && !hardcover.Configured() {
		logger.Warn("未配置HARDCOVER_API_KEY，书目元数据将缺失")
	}

	service := services.NewRecommendationService(cfg, openai, hardcover, responseCache)
	api := handlers.NewAPI(cfg, service, responseCache, openai, hardcover)
	r := handlers.NewRouter(cfg, api)

	// 启动定时任务
	sched := scheduler.Start(cfg, responseCache)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("服务器启动", "address", cfg.Server.Addr)
		logger.Info("Swagger文档可访问", "url", fmt.Sprintf("http://localhost:%d/swagger/index.html", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("服务器异常退出", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("收到退出信号，开始关闭服务", "signal", sig.String())

	sched.Stop()

	timeout := time.Duration(cfg.Server.ShutdownTimeoutSec) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭HTTP服务失败", "error", err)
	}

	if err := responseCache.Close(); err != nil {
		logger.Error("关闭缓存失败", "error", err)
	}
	if err := closeBackend(); err != nil {
		logger.Error("关闭数据库连接失败", "error", err)
	}
	logger.Info("服务已退出")
}

// openStore 按配置选择缓存后端，初始化失败时退回内存缓存
func openStore(ctx context.Context, cfg *config.Config) (cache.Store, func() error) {
	noop := func() error { return nil }

	var (
		store cache.Store
		err   error
	)
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryStore(cfg.Cache.MemoryMaxEntries), noop
	case "badger":
		store, err = cache.NewBadgerStore(filepath.Join(cfg.Cache.Dir, "badger"))
	case "mysql":
		sqlDB, dbErr := db.Open(ctx, cfg)
		if dbErr != nil {
			err = dbErr
			break
		}
		logger.Info("MySQL连接成功",
			"max_open_conns", cfg.DB.MaxOpenConns,
			"max_idle_conns", cfg.DB.MaxIdleConns,
			"conn_max_lifetime", cfg.DB.ConnMaxLifetime)
		mysqlStore, repoErr := repository.NewMySQLCacheStore(ctx, sqlDB)
		if repoErr != nil {
			_ = sqlDB.Close()
			err = repoErr
			break
		}
		return mysqlStore, sqlDB.Close
	default:
		fileStore, fsErr := cache.NewFileStore(cfg.Cache.Dir)
		if fsErr != nil {
			err = fsErr
			break
		}
		logger.Info("使用文件缓存", "dir", fileStore.Dir())
		store = fileStore
	}

	if err != nil {
		logger.Error("初始化缓存后端失败，改用内存缓存", "backend", cfg.Cache.Backend, "error", err)
		return cache.NewMemoryStore(cfg.Cache.MemoryMaxEntries), noop
	}
	return store, noop
}
