package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sfv-tech/sfv-ops/internal/app"
	"github.com/sfv-tech/sfv-ops/internal/materials"
	"github.com/sfv-tech/sfv-ops/internal/observability"
	"github.com/sfv-tech/sfv-ops/internal/platform/cache"
	"github.com/sfv-tech/sfv-ops/internal/platform/db"
	"github.com/sfv-tech/sfv-ops/internal/quotations"
	"github.com/sfv-tech/sfv-ops/internal/shared"
	"github.com/sfv-tech/sfv-ops/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, list caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	materialsRepo := materials.NewRepository(pool)
	materialsService := materials.NewService(materialsRepo)
	materialsHandler := materials.NewHandler(logger, materialsService)

	quotationsRepo := quotations.NewRepository(pool)
	listCache := quotations.NewListCache(redisClient, cfg.ListCacheTTL)
	quotationsService := quotations.NewService(quotationsRepo, materialsService, listCache, auditLogger, quotations.Defaults{
		DiscountPercent: cfg.DefaultDiscountPercent,
		VATPercent:      cfg.DefaultVATPercent,
	})
	pdfRenderer := quotations.NewPDFRenderer(quotations.CompanyInfo{
		Name:    cfg.CompanyName,
		Address: cfg.CompanyAddress,
		Phone:   cfg.CompanyPhone,
		Email:   cfg.CompanyEmail,
	})
	quotationsHandler := quotations.NewHandler(logger, quotationsService, pdfRenderer)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Pool:              pool,
		Actors:            usersService,
		Metrics:           metrics,
		QuotationsHandler: quotationsHandler,
		MaterialsHandler:  materialsHandler,
		UsersHandler:      usersHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
