package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

const planCacheKeyPrefix = "catalog:plans:"

type catalogAssignmentRepository interface {
	FindDetail(ctx context.Context, id string) (*models.AssignmentDetail, error)
	ListDetails(ctx context.Context, grade string) ([]models.AssignmentDetail, error)
	ListTeachers(ctx context.Context, assignmentIDs []string) ([]models.AssignmentTeacher, error)
	ListScheduleDays(ctx context.Context, scheduleIDs []string) ([]models.ScheduleDay, error)
}

type catalogPlanRepository interface {
	ListActiveByLevel(ctx context.Context, level models.PlanLevel) ([]models.Plan, error)
	ListCourses(ctx context.Context, planIDs []string) ([]models.PlanCourse, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
}

// CatalogService answers read-only capacity and plan queries.
type CatalogService struct {
	assignments catalogAssignmentRepository
	plans       catalogPlanRepository
	cache       catalogCache
	cacheTTL    time.Duration
	logger      *zap.Logger
	group       singleflight.Group
}

// NewCatalogService constructs a CatalogService. cache may be nil.
func NewCatalogService(assignments catalogAssignmentRepository, plans catalogPlanRepository, cache catalogCache, cacheTTL time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{assignments: assignments, plans: plans, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// AssignmentSummary returns one class group with occupancy, teachers and schedule.
func (s *CatalogService) AssignmentSummary(ctx context.Context, id string) (*dto.AssignmentSummary, error) {
	detail, err := s.assignments.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class group not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load class group")
	}
	summaries, err := s.summarize(ctx, []models.AssignmentDetail{*detail})
	if err != nil {
		return nil, err
	}
	return &summaries[0], nil
}

// ListAssignments returns class groups, optionally for one grade.
func (s *CatalogService) ListAssignments(ctx context.Context, grade string) ([]dto.AssignmentSummary, error) {
	grade = strings.TrimSpace(grade)
	if grade != "" && !models.IsValidGrade(grade) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade is not offered")
	}
	details, err := s.assignments.ListDetails(ctx, grade)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list class groups")
	}
	if len(details) == 0 {
		return []dto.AssignmentSummary{}, nil
	}
	return s.summarize(ctx, details)
}

// Plans returns active plans with their courses, optionally for one level.
func (s *CatalogService) Plans(ctx context.Context, level string) ([]models.Plan, error) {
	planLevel := models.PlanLevel(strings.ToUpper(strings.TrimSpace(level)))
	if planLevel != "" && !planLevel.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "level must be PRIMARIA or SECUNDARIA")
	}
	key := planCacheKeyPrefix + strings.ToLower(string(planLevel))
	if key == planCacheKeyPrefix {
		key += "all"
	}

	if s.cache != nil {
		var cached []models.Plan
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		plans, err := s.loadPlans(ctx, planLevel)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, key, plans, s.cacheTTL)
		}
		return plans, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Plan), nil
}

// FlushPlans drops cached plan listings so edits made in the database show up immediately.
func (s *CatalogService) FlushPlans(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	removed, err := s.cache.InvalidatePrefix(ctx, planCacheKeyPrefix)
	if err != nil {
		return 0, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to flush catalog cache")
	}
	return removed, nil
}

func (s *CatalogService) loadPlans(ctx context.Context, level models.PlanLevel) ([]models.Plan, error) {
	plans, err := s.plans.ListActiveByLevel(ctx, level)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list plans")
	}
	if len(plans) == 0 {
		return []models.Plan{}, nil
	}
	ids := make([]string, 0, len(plans))
	for _, plan := range plans {
		ids = append(ids, plan.ID)
	}
	courses, err := s.plans.ListCourses(ctx, ids)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list plan courses")
	}
	byPlan := make(map[string][]models.Course, len(plans))
	for _, course := range courses {
		byPlan[course.PlanID] = append(byPlan[course.PlanID], course.Course)
	}
	for i := range plans {
		plans[i].Courses = byPlan[plans[i].ID]
	}
	return plans, nil
}

func (s *CatalogService) summarize(ctx context.Context, details []models.AssignmentDetail) ([]dto.AssignmentSummary, error) {
	ids := make([]string, 0, len(details))
	scheduleIDs := make([]string, 0, len(details))
	seen := make(map[string]struct{}, len(details))
	for _, detail := range details {
		ids = append(ids, detail.ID)
		if _, ok := seen[detail.ScheduleID]; !ok {
			seen[detail.ScheduleID] = struct{}{}
			scheduleIDs = append(scheduleIDs, detail.ScheduleID)
		}
	}

	var (
		teachers []models.AssignmentTeacher
		days     []models.ScheduleDay
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teachers, err = s.assignments.ListTeachers(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		days, err = s.assignments.ListScheduleDays(gctx, scheduleIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load class group details")
	}

	teacherNames := make(map[string][]string)
	for _, t := range teachers {
		teacherNames[t.AssignmentID] = append(teacherNames[t.AssignmentID], strings.TrimSpace(t.FirstName+" "+t.LastName))
	}
	dayNames := make(map[string][]string)
	for _, d := range days {
		dayNames[d.ScheduleID] = append(dayNames[d.ScheduleID], d.Day)
	}

	summaries := make([]dto.AssignmentSummary, 0, len(details))
	for _, detail := range details {
		available := detail.Capacity - detail.Occupied
		if available < 0 {
			available = 0
		}
		summaries = append(summaries, dto.AssignmentSummary{
			ID:        detail.ID,
			PlanID:    detail.PlanID,
			PlanName:  detail.PlanName,
			Grade:     detail.Grade,
			Room:      detail.RoomName,
			Schedule:  detail.ScheduleName,
			Days:      nonNil(dayNames[detail.ScheduleID]),
			TimeRange: detail.StartTime + " - " + detail.EndTime,
			Teachers:  nonNil(teacherNames[detail.ID]),
			Price:     detail.Price,
			StartsOn:  detail.StartsOn,
			EndsOn:    detail.EndsOn,
			Occupied:  detail.Occupied,
			Capacity:  detail.Capacity,
			Available: available,
			Full:      available == 0,
		})
	}
	return summaries, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
