package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/availability-api/api/swagger"
	"github.com/noah-isme/availability-api/internal/handler"
	"github.com/noah-isme/availability-api/internal/middleware"
	"github.com/noah-isme/availability-api/internal/service"
	"github.com/noah-isme/availability-api/pkg/config"
	"github.com/noah-isme/availability-api/pkg/jobs"
	"github.com/noah-isme/availability-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/availability-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/availability-api/pkg/middleware/requestid"
	"github.com/noah-isme/availability-api/pkg/middleware/tenant"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	importer := service.NewAvailabilityImportService(a.slots, a.logger)
	if cfg.BulkImport.QueueEnabled {
		queue := jobs.NewQueue("availability-import", importer.Handle, jobs.QueueConfig{
			Workers:    cfg.BulkImport.Workers,
			MaxRetries: cfg.BulkImport.Retries,
			Logger:     a.logger,
		})
		queue.Start(ctx)
		defer queue.Stop()
		importer.AttachQueue(queue)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(tenant.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	dependencies := map[string]handler.Pinger{"postgres": a.db}
	if a.redis != nil {
		dependencies["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	metricsHandler := handler.NewMetricsHandler(a.metrics, dependencies)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	handler.NewAvailabilitySlotHandler(a.slots, importer).Register(api)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
