package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/availability-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheService wraps a CacheRepository with metrics and a default TTL.
// Cache failures are logged and never fail the caller's request.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool

	genMu       sync.Mutex
	generations map[string]uint64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:        repo,
		metrics:     metrics,
		defaultTTL:  defaultTTL,
		logger:      logger,
		enabled:     enabled,
		generations: make(map[string]uint64),
	}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get reports whether key was found and decoded into dest.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	hit := err == nil
	s.metrics.RecordCacheOperation(hit, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return hit
}

// Set stores value under key; ttl <= 0 uses the default TTL.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Generation returns how often pattern has been invalidated by this process.
// Read it before loading the value later passed to SetIfCurrent.
func (s *CacheService) Generation(pattern string) uint64 {
	if !s.Enabled() {
		return 0
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[pattern]
}

// SetIfCurrent stores value unless pattern was invalidated after gen was read.
// A racing invalidation is detected either before the write or after it, in
// which case the just written key is removed again.
func (s *CacheService) SetIfCurrent(ctx context.Context, pattern string, gen uint64, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() || s.Generation(pattern) != gen {
		return
	}
	s.Set(ctx, key, value, ttl)
	if s.Generation(pattern) == gen {
		return
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		s.logger.Warn("cache rollback failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes cached values matching pattern. The generation is bumped
// before deleting so SetIfCurrent callers racing with it back off.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) {
	if !s.Enabled() {
		return
	}
	s.genMu.Lock()
	s.generations[pattern]++
	s.genMu.Unlock()
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
