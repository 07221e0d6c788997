package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/xela07ax/devguard/internal/handler"
	"github.com/xela07ax/devguard/internal/infra"
	"github.com/xela07ax/devguard/internal/infra/auth"
	"github.com/xela07ax/devguard/internal/repository/postgres"
	"github.com/xela07ax/devguard/internal/server"
	"github.com/xela07ax/devguard/internal/service"
	"github.com/xela07ax/devguard/internal/violations"

	"go.uber.org/zap"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	// 2. Инфраструктура и ресурсы
	repo, err := postgres.New(cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Fatal("postgres init failed", zap.Error(err))
	}
	defer repo.Close()

	// На старте база может подниматься параллельно (docker-compose),
	// поэтому Ping с экспоненциальным бэкоффом вместо немедленного Fatal
	err = retry.New(
		retry.Attempts(5),
		retry.Delay(time.Second),
	).Do(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return repo.Ping(ctx)
	})
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Метрики
	promReg := prometheus.NewRegistry()
	metrics := infra.NewMetrics(promReg)

	// Асинхронный буфер приема нарушений
	sink := violations.NewSink(repo, cfg.Violations, metrics, logger)
	sink.Start()

	// 3. Инициализация слоев (Dependency Injection)
	tokens := auth.NewTokens(
		cfg.Auth.DeviceTokenSecret, cfg.Auth.AdminTokenSecret,
		cfg.Auth.DeviceTokenTTL, cfg.Auth.AdminTokenTTL,
	)
	signaler := service.NewSignaler(rdb, logger)

	approvalService := service.NewApprovalService(repo, signaler, metrics, logger)
	authService := service.NewAuthService(repo, tokens, cfg.Auth.BcryptCost, logger)
	policyService := service.NewPolicyService(repo, signaler, logger)
	deviceService := service.NewDeviceService(repo, tokens, sink, signaler, logger)

	srv := server.New(
		cfg, logger, metrics, promReg, tokens,
		handler.NewAuthHandler(authService),
		handler.NewDeviceHandler(deviceService, policyService),
		handler.NewApprovalHandler(approvalService),
		handler.NewManagementHandler(deviceService, policyService),
	)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 4. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("DevGuard API started", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("DevGuard API stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Сбрасываем остатки буфера нарушений перед выходом
	sink.Stop()

	if err := rdb.Close(); err != nil {
		logger.Warn("redis close failed", zap.Error(err))
	}

	logger.Info("DevGuard API exited properly")
}
