// Package main запускает HTTP-сервер сервиса SajuKing.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sajuking/sajuking-server/internal/config"
	"github.com/sajuking/sajuking-server/internal/handler"
	"github.com/sajuking/sajuking-server/internal/llm"
	"github.com/sajuking/sajuking-server/internal/metrics"
	"github.com/sajuking/sajuking-server/internal/middleware"
	"github.com/sajuking/sajuking-server/internal/model"
	"github.com/sajuking/sajuking-server/internal/portone"
	"github.com/sajuking/sajuking-server/internal/repository"
	"github.com/sajuking/sajuking-server/internal/service"
	"github.com/sajuking/sajuking-server/internal/tasks"
)

const taskQueueSize = 64

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	if !cfg.PaymentsConfigured() {
		sugar.Warn("PORTONE_STORE_ID or PORTONE_CHANNEL_KEY is not set, checkout is disabled")
	}

	var payments service.PaymentProvider
	if cfg.PortOneAPISecret != "" {
		payments = portone.NewClient(cfg.PortOneAPIURL, cfg.PortOneAPISecret)
	} else {
		sugar.Warn("PORTONE_API_SECRET is not set, payment verification is disabled")
	}

	var completer llm.Completer
	if cfg.GeminiAPIKey != "" {
		genAI, err := llm.NewGenAI(ctx, llm.Options{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
		if err != nil {
			sugar.Fatalw("llm initialization error", "error", err.Error())
		}
		completer = genAI
		sugar.Infow("llm enabled", "model", genAI.Name())
	} else {
		sugar.Warn("GEMINI_API_KEY is not set, fortune and chat are disabled")
	}

	queue := tasks.NewQueue(taskQueueSize, cfg.TaskWorkers)

	svc := service.NewService(service.Deps{
		Repo:     repo,
		Payments: payments,
		LLM:      completer,
		Tasks:    queue,
		Metrics:  collector,
		Logger:   logger,
		PortOne: model.PortOneConfig{
			StoreID:    cfg.PortOneStoreID,
			ChannelKey: cfg.PortOneChannelKey,
		},
		PremiumPrice: cfg.PremiumPrice,
	})
	defer svc.Close()

	// Лимит по адресу не даёт обойти лимит устройства, сбросив cookie.
	addrLimiter := middleware.NewRateLimiter(cfg.ChatAddrRatePerMinute, logger, middleware.WithKeyFunc(middleware.ClientAddrKey))
	defer addrLimiter.Stop()
	deviceLimiter := middleware.NewRateLimiter(cfg.ChatRatePerMinute, logger)
	defer deviceLimiter.Stop()

	h := handler.NewHandler(svc, logger, middleware.NewDeviceMiddleware(cfg.CookieSecret), addrLimiter, deviceLimiter)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(metrics.Handler(registry)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновые задачи: сводки записей и платные анализы
	g.Go(func() error {
		queue.Run(ctx)
		return nil
	})

	g.Go(func() error {
		for err := range queue.Errors() {
			sugar.Warnw("background task failed", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting sajuking server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
