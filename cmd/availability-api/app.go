package main

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/availability-api/internal/repository"
	"github.com/noah-isme/availability-api/internal/service"
	"github.com/noah-isme/availability-api/pkg/cache"
	"github.com/noah-isme/availability-api/pkg/config"
	"github.com/noah-isme/availability-api/pkg/database"
	"github.com/noah-isme/availability-api/pkg/logger"
)

// app holds the long-lived dependencies shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *sqlx.DB
	redis   *redis.Client
	metrics *service.MetricsService
	slots   *service.AvailabilitySlotService
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	a := &app{cfg: cfg, logger: logr, db: db, metrics: service.NewMetricsService()}

	var cacheRepo service.CacheRepository
	if cfg.Availability.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			a.redis = client
			cacheRepo = repository.NewCacheRepository(client)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, a.metrics, cfg.Availability.CacheTTL, logr, cacheRepo != nil)

	store := repository.NewAvailabilitySlotRepository(db).WithObserver(a.metrics)
	a.slots = service.NewAvailabilitySlotService(store, db, cacheSvc, a.metrics, validator.New(), logr, service.AvailabilitySlotConfig{
		DefaultMergePolicy: cfg.Availability.DefaultMergePolicy,
		SlotTypes:          cfg.Availability.SlotTypes,
		LockEnabled:        cfg.Availability.LockEnabled,
		MaxBulkItems:       cfg.BulkImport.MaxItems,
		CacheTTL:           cfg.Availability.CacheTTL,
	})

	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.logger.Sync()
}
