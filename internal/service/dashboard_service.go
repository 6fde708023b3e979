package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

const collectionsCacheKey = "dash:collections"

type collectionsRepository interface {
	CollectionTotals(ctx context.Context) (*models.CollectionTotals, error)
	CollectionsByGrade(ctx context.Context) ([]models.CollectionBucket, error)
	CollectionsByAssignment(ctx context.Context) ([]models.CollectionBucket, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the staff money overview.
type DashboardService struct {
	repo    collectionsRepository
	cache   dashboardCache
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cfg     DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Repository collectionsRepository
	Cache      dashboardCache
	Metrics    *MetricsService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repo:    params.Repository,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		now:     time.Now,
		cfg:     cfg,
	}
}

// Collections returns collected and pending totals and reports whether the cache served them.
func (s *DashboardService) Collections(ctx context.Context) (*models.CollectionsSummary, bool, error) {
	if summary, hit := s.tryCache(ctx); hit {
		return summary, true, nil
	}

	start := time.Now()
	summary, err := s.composeCollections(ctx)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("dashboard_collections", time.Since(start))
	}
	if err != nil {
		return nil, false, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load collections")
	}
	s.persistCache(ctx, summary)
	return summary, false, nil
}

func (s *DashboardService) composeCollections(ctx context.Context) (*models.CollectionsSummary, error) {
	var (
		totals       *models.CollectionTotals
		byGrade      []models.CollectionBucket
		byAssignment []models.CollectionBucket
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		totals, err = s.repo.CollectionTotals(gctx)
		return err
	})
	group.Go(func() (err error) {
		byGrade, err = s.repo.CollectionsByGrade(gctx)
		return err
	})
	group.Go(func() (err error) {
		byAssignment, err = s.repo.CollectionsByAssignment(gctx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	summary := &models.CollectionsSummary{
		ByGrade:      nonNilBuckets(byGrade),
		ByAssignment: nonNilBuckets(byAssignment),
		GeneratedAt:  s.now().UTC(),
	}
	if totals != nil {
		summary.CollectionTotals = *totals
	}
	for i := range summary.ByAssignment {
		if summary.ByAssignment[i].Key == "" {
			summary.ByAssignment[i].Label = "Sin asignación"
		}
	}
	return summary, nil
}

func (s *DashboardService) tryCache(ctx context.Context) (*models.CollectionsSummary, bool) {
	if s.cache == nil {
		return nil, false
	}
	var cached models.CollectionsSummary
	hit, err := s.cache.Get(ctx, collectionsCacheKey, &cached)
	if err != nil || !hit {
		return nil, false
	}
	return &cached, true
}

func (s *DashboardService) persistCache(ctx context.Context, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, collectionsCacheKey, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", collectionsCacheKey), zap.Error(err))
	}
}

func nonNilBuckets(buckets []models.CollectionBucket) []models.CollectionBucket {
	if buckets == nil {
		return []models.CollectionBucket{}
	}
	return buckets
}
