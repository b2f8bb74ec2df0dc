package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/enrollment-console/api/swagger"
	"github.com/noah-isme/enrollment-console/internal/app"
	"github.com/noah-isme/enrollment-console/internal/handler"
	internalmiddleware "github.com/noah-isme/enrollment-console/internal/middleware"
	"github.com/noah-isme/enrollment-console/internal/service"
	"github.com/noah-isme/enrollment-console/pkg/config"
	"github.com/noah-isme/enrollment-console/pkg/logger"
	corsmiddleware "github.com/noah-isme/enrollment-console/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/enrollment-console/pkg/middleware/requestid"
)

// @title Enrollment Console API
// @version 1.0.0
// @description JSON mirror of the enrollment console. Mutations are optimistic: the local row changes first and the backend result is reported in meta.outcome.
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	boot := app.NewClient(ctx, cfg, metricsSvc, logr)
	defer boot.Close() //nolint:errcheck

	console := app.New(cfg, boot.Client, metricsSvc, logr)
	if err := console.Load(ctx); err != nil {
		logr.Warn("initial load incomplete; affected views start empty",
			zap.String("backend", cfg.Backend.BaseURL), zap.Error(err))
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.Register(r, console, cfg.APIPrefix)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped")
}
