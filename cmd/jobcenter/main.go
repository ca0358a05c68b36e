package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobcenter/internal/config"
	"jobcenter/internal/domain"
	httpapi "jobcenter/internal/http"
	"jobcenter/internal/maintenance"
	"jobcenter/internal/notifier"
	"jobcenter/internal/repository"
	"jobcenter/internal/service"
	"jobcenter/internal/store"

	"jobcenter/internal/common/database"
	"jobcenter/internal/common/logger"
	commonmqtt "jobcenter/internal/common/mqtt"
	commonredis "jobcenter/internal/common/redis"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "jobcenter")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 仓库：DB 不可用时降级到内存实现（本地 `go run` 也能把平板页面跑起来）
	var repo repository.OperationsRepository
	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Warn("DB enabled but connection failed, falling back to in-memory repository", zap.Error(err))
			repo = seedMemoryRepo()
		} else {
			defer database.Close(db)
			log.Info("DB enabled for jobcenter")
			repo = repository.NewPostgresOperationsRepository(db)
		}
	} else {
		repo = seedMemoryRepo()
	}

	// Redis：状态轮询缓存 + 通知 Stream 推送（均为旁路，连不上就不用）
	var cache service.StatusCache
	var sinks []notifier.Sink
	if cfg.Redis.Enabled {
		redisClient := commonredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := commonredis.Ping(ctx, redisClient); err != nil {
			log.Warn("Redis unavailable, status cache and stream publish disabled", zap.Error(err))
		} else {
			cache = store.NewStatusCache(store.NewRedisKV(redisClient),
				time.Duration(cfg.Redis.StatusTTL)*time.Second, log)
			sinks = append(sinks, notifier.NewStreamPublisher(redisClient, cfg.Redis.Stream, log))
		}
		cancel()
	}

	// MQTT 安灯广播（默认禁用）
	if cfg.MQTT.Enabled {
		mqttClient, err := commonmqtt.NewClient(&cfg.MQTT)
		if err != nil {
			log.Warn("MQTT connect failed, andon broadcast disabled", zap.Error(err))
		} else {
			defer mqttClient.Disconnect()
			sinks = append(sinks, notifier.NewAndonPublisher(mqttClient, cfg.MQTT.Topic, cfg.MQTT.QoS, log))
		}
	}

	var publisher service.NotificationPublisher
	if len(sinks) > 0 {
		publisher = notifier.NewMultiPublisher(log, sinks...)
	}

	// 维修系统上报（默认禁用，工单引用仍会落库）
	var maint service.MaintenanceReporter
	if cfg.Maintenance.Enabled {
		maint = maintenance.NewClient(cfg.Maintenance.BaseURL, cfg.Maintenance.APIKey, log)
	}

	actions := service.NewJobActionService(repo, publisher, maint, cache, log)
	queries := service.NewOperationQueryService(repo, cache, log)
	sequences := service.NewSequenceService(repo, log)

	router := httpapi.NewRouter(log)
	router.RegisterJobRoutes(
		httpapi.NewOperationHandler(actions, queries, log),
		httpapi.NewMachineHandler(queries, sequences, log),
		httpapi.NewNotificationHandler(queries, log),
	)
	router.HandleHandler("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("jobcenter listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	// 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErrChan:
		log.Fatal("HTTP server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}

	log.Info("jobcenter stopped")
}

// seedMemoryRepo 内存仓库加几条演示工单（本地开发用）
func seedMemoryRepo() *repository.MemoryOperationsRepository {
	repo := repository.NewMemoryOperationsRepository()
	now := time.Now()
	repo.Seed(&domain.Operation{
		ID: 1, MachineID: "M-01", ItemID: "ITM-1001", LotID: "LOT-24001",
		Status: domain.StatusNew, PlannedQty: 500,
		CreatedAt: now, UpdatedAt: now,
	})
	repo.Seed(&domain.Operation{
		ID: 2, MachineID: "M-01", ItemID: "ITM-1002", LotID: "LOT-24002",
		Status: domain.StatusAssigned, PlannedQty: 250, Sequence: 1,
		CreatedAt: now, UpdatedAt: now,
	})
	repo.Seed(&domain.Operation{
		ID: 3, MachineID: "M-02", ItemID: "ITM-2001", LotID: "LOT-24003",
		Status: domain.StatusInProcess, PlannedQty: 1000, ActualQty: 420, Sequence: 1,
		CreatedAt: now, UpdatedAt: now,
	})
	return repo
}
