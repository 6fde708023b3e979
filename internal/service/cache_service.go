package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

// CacheRepository stores JSON payloads by key.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
}

// CacheConfig configures a CacheService.
type CacheConfig struct {
	Enabled    bool
	Namespace  string
	DefaultTTL time.Duration
}

// CacheService prefixes keys with a namespace and records hit ratios.
// A disabled or nil service behaves as a permanent miss.
type CacheService struct {
	repo      CacheRepository
	metrics   *MetricsService
	logger    *zap.Logger
	namespace string
	ttl       time.Duration
	enabled   bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, logger *zap.Logger, cfg CacheConfig) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 10 * time.Minute
	}
	ns := strings.Trim(cfg.Namespace, ":")
	if ns == "" {
		ns = "ceama"
	}
	return &CacheService{
		repo:      repo,
		metrics:   metrics,
		logger:    logger,
		namespace: ns,
		ttl:       cfg.DefaultTTL,
		enabled:   cfg.Enabled,
	}
}

// Enabled reports whether lookups reach the backing store.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

func (s *CacheService) key(k string) string {
	return s.namespace + ":" + k
}

// Get decodes the cached value into dest and reports whether it was found.
// Backend failures are logged and returned alongside a miss.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, s.key(key), dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value; a non-positive ttl uses the configured default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	start := time.Now()
	err := s.repo.Set(ctx, s.key(key), value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// InvalidatePrefix drops every key starting with prefix and returns how many were removed.
func (s *CacheService) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	removed, err := s.repo.DeleteByPattern(ctx, s.key(prefix)+"*")
	if err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("prefix", prefix), zap.Error(err))
		return removed, err
	}
	s.logger.Info("cache invalidated", zap.String("prefix", prefix), zap.Int("keys", removed))
	return removed, nil
}
