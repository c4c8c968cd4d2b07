package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ttvtimotheus/dsbbutbetter/config"
	"github.com/ttvtimotheus/dsbbutbetter/internal/api/handler"
	"github.com/ttvtimotheus/dsbbutbetter/internal/api/router"
	"github.com/ttvtimotheus/dsbbutbetter/internal/dsb"
	"github.com/ttvtimotheus/dsbbutbetter/internal/repository"
	"github.com/ttvtimotheus/dsbbutbetter/internal/service"
	"github.com/ttvtimotheus/dsbbutbetter/pkg/database"
	applogger "github.com/ttvtimotheus/dsbbutbetter/pkg/logger"
	"github.com/ttvtimotheus/dsbbutbetter/pkg/ocr"
	"github.com/ttvtimotheus/dsbbutbetter/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 按配置选择缓存后端
	var (
		cacheRepo repository.CacheRepository
		rdb       *redis.Client
	)
	switch cfg.Cache.Backend {
	case "postgres":
		db, err := database.NewDB(&cfg.Database, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
		defer sqlDB.Close()
		cacheRepo = repository.NewPostgresCacheRepo(db)
		logger.Info("缓存后端: PostgreSQL")

	case "redis":
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Redis 连接失败", zap.Error(err))
		}
		cacheRepo = repository.NewRedisCacheRepo(rdb)
		logger.Info("缓存后端: Redis")

	default:
		cacheRepo = repository.NewMemoryCacheRepo()
		logger.Info("缓存后端: 进程内存（重启丢失）")
	}

	// 3.1 限流用 Redis（可选：缓存后端未选 Redis 时单独尝试连接，
	//     失败时降级运行，不中断启动）
	if rdb == nil {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，速率限制功能将不可用", zap.Error(err))
			rdb = nil
		}
	}

	// 4. OCR 引擎（懒加载：首次采集时才初始化 Tesseract）
	engine := ocr.NewLazy(func() (ocr.Engine, error) {
		return ocr.NewTesseractEngine(cfg.OCR.Languages)
	})

	// 5. DSBmobile 门户客户端
	client := dsb.NewHTTPClient(&cfg.DSB, logger)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(cacheRepo)
	svc := service.NewService(cfg, repo, client, engine, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	r := router.Setup(cfg, h, rdb, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // 采集接口含门户往返 + OCR
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
