package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pujaledger/internal/config"
	"pujaledger/internal/handler"
	"pujaledger/internal/infrastructure/cache"
	"pujaledger/internal/infrastructure/database"
	"pujaledger/internal/infrastructure/mq"
	"pujaledger/internal/job"
	"pujaledger/internal/logging"
	"pujaledger/internal/service"
	"pujaledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，默认查找 ./config/config.yaml")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logging.SetDefault(logger)
	if err := run(cfg, logger); err != nil {
		logger.Error("service exited", logging.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	// 初始化 ID 生成器
	if err := idgen.Init(cfg.Server.NodeID); err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.Business.Timezone)
	if err != nil {
		return fmt.Errorf("加载时区失败: %w", err)
	}

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Redis 可选，未启用时报表不缓存、启动任务不加锁
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = cache.InitRedis(&cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}
	reportCache := cache.NewReportCache(rdb, time.Duration(cfg.Redis.CacheTTLSeconds)*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动任务
	bootstrap := service.NewBootstrapService(db, rdb, cfg.Admin, loc, logger)
	if _, err := bootstrap.SeedAdmin(ctx); err != nil && !errors.Is(err, service.ErrBootstrapLocked) {
		return fmt.Errorf("初始化管理员失败: %w", err)
	}
	if cfg.Business.BackfillOnStart {
		if _, err := bootstrap.BackfillMemberContributions(ctx); err != nil && !errors.Is(err, service.ErrBootstrapLocked) {
			return fmt.Errorf("补录会费流水失败: %w", err)
		}
	}

	events := service.NewEventRecorder(db, cfg.Events.Enabled, cfg.Kafka.Topic.LedgerEvents)
	reconcile := service.NewReconcileService(db, reportCache, logger)
	h := handler.NewHandler(handler.Services{
		Auth:      service.NewAuthService(db, cfg.JWT, logger),
		Members:   service.NewMemberService(db, reportCache, logger),
		Donors:    service.NewDonorService(db, reportCache, logger),
		Ledger:    service.NewLedgerService(db, events, reportCache, logger),
		Reports:   service.NewReportService(db, reportCache, loc, logger),
		Reconcile: reconcile,
		Health:    service.NewHealthService(db),
	})

	// 启动后台任务
	if cfg.Events.Enabled {
		publisher, err := mq.NewPublisher(cfg)
		if err != nil {
			return err
		}
		defer publisher.Close()

		outboxSender := job.NewOutboxSender(db, publisher, cfg.Business.MaxRetryCount, logger)
		go outboxSender.Start(ctx)
	}

	reconcileJob := job.NewReconcileJob(reconcile, rdb, cfg.Business.ReconcileIntervalMinutes, logger)
	go reconcileJob.Start(ctx)

	// 启动 HTTP 服务
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler.SetupRouter(h, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("服务启动失败: %w", err)
	}

	logger.Info("shutting down")

	// 取消上下文，停止后台任务
	cancel()

	// 关闭 HTTP 服务（等待最多5秒）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", logging.FieldError, err)
	}

	logger.Info("service stopped")
	return nil
}
