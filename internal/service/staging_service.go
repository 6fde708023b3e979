package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

// DefaultStagingTTL is how long staged registration data stays usable.
const DefaultStagingTTL = 24 * time.Hour

// StagingStore persists staged records per session; Redis in production, memory otherwise.
type StagingStore interface {
	Save(ctx context.Context, session string, record models.StagedRecord) error
	Load(ctx context.Context, session string, kind models.StagedKind) (*models.StagedRecord, error)
	Delete(ctx context.Context, session string) error
}

type stagingPlanReader interface {
	FindByID(ctx context.Context, id string) (*models.Plan, error)
}

type stagingAssignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassGroupAssignment, error)
}

type stagingGuardianReader interface {
	FindByPhone(ctx context.Context, phone string) (*models.Guardian, error)
}

type assignmentSummarizer interface {
	AssignmentSummary(ctx context.Context, id string) (*dto.AssignmentSummary, error)
}

// StagingService holds the not yet persisted halves of a registration per session.
type StagingService struct {
	store       StagingStore
	plans       stagingPlanReader
	assignments stagingAssignmentReader
	guardians   stagingGuardianReader
	catalog     assignmentSummarizer
	validator   *validator.Validate
	logger      *zap.Logger
	ttl         time.Duration
	now         func() time.Time
}

// NewStagingService constructs a StagingService.
func NewStagingService(store StagingStore, plans stagingPlanReader, assignments stagingAssignmentReader, guardians stagingGuardianReader, catalog assignmentSummarizer, validate *validator.Validate, logger *zap.Logger, ttl time.Duration) *StagingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultStagingTTL
	}
	return &StagingService{
		store:       store,
		plans:       plans,
		assignments: assignments,
		guardians:   guardians,
		catalog:     catalog,
		validator:   validate,
		logger:      logger,
		ttl:         ttl,
		now:         time.Now,
	}
}

// StageRegistration validates and stages the student and plan selection.
func (s *StagingService) StageRegistration(ctx context.Context, session string, req dto.StageRegistrationRequest) (*models.StagedRecord, error) {
	if strings.TrimSpace(session) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration session is required")
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.School = strings.TrimSpace(req.School)
	req.PlanID = normalizeRef(req.PlanID)
	req.AssignmentID = normalizeRef(req.AssignmentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid registration payload")
	}
	if !models.IsValidGrade(req.Grade) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade is not offered")
	}

	if req.PlanID != nil {
		plan, err := s.plans.FindByID(ctx, *req.PlanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "plan not found")
			}
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load plan")
		}
		if !plan.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "plan is not available")
		}
	}
	if req.AssignmentID != nil {
		assignment, err := s.assignments.FindByID(ctx, *req.AssignmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "class group not found")
			}
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load class group")
		}
		if assignment.Grade != req.Grade {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class group does not match the selected grade")
		}
		if req.PlanID != nil && assignment.PlanID != *req.PlanID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class group does not belong to the selected plan")
		}
	}

	record := models.StagedRecord{
		Kind:      models.StagedKindEnrollment,
		CreatedAt: s.now().UTC(),
		TTL:       s.ttl,
		Enrollment: &models.StagedEnrollment{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Age:          req.Age,
			Grade:        req.Grade,
			School:       req.School,
			PlanID:       req.PlanID,
			AssignmentID: req.AssignmentID,
		},
	}
	if err := s.store.Save(ctx, session, record); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to stage registration")
	}
	return &record, nil
}

// StageGuardian validates and stages the guardian. The student must be staged first.
func (s *StagingService) StageGuardian(ctx context.Context, session string, req dto.StageGuardianRequest) (*models.StagedRecord, error) {
	if strings.TrimSpace(session) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration session is required")
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Address = strings.TrimSpace(req.Address)
	req.Email = normalizeRef(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid guardian payload")
	}

	enrollment, err := s.load(ctx, session, models.StagedKindEnrollment)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student data must be submitted first")
	}
	if sameName(req.FirstName+" "+req.LastName, enrollment.Enrollment.FirstName+" "+enrollment.Enrollment.LastName) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "guardian must be a different person than the student")
	}

	owner, err := s.guardians.FindByPhone(ctx, req.Phone)
	switch {
	case err == nil && owner.DNI != req.DNI:
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "this phone number is already registered to another guardian")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to check guardian phone")
	}

	record := models.StagedRecord{
		Kind:      models.StagedKindGuardian,
		CreatedAt: s.now().UTC(),
		TTL:       s.ttl,
		Guardian: &models.StagedGuardian{
			DNI:       req.DNI,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
			Email:     req.Email,
			Address:   req.Address,
		},
	}
	if err := s.store.Save(ctx, session, record); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to stage guardian")
	}
	return &record, nil
}

// Resolve returns both staged records together, or nil when either is missing.
// An expired record clears the whole session and yields ErrStagedDataExpired.
func (s *StagingService) Resolve(ctx context.Context, session string) (*models.StagedRegistration, error) {
	if strings.TrimSpace(session) == "" {
		return nil, nil
	}
	enrollment, err := s.load(ctx, session, models.StagedKindEnrollment)
	if err != nil {
		return nil, err
	}
	guardian, err := s.load(ctx, session, models.StagedKindGuardian)
	if err != nil {
		return nil, err
	}
	if enrollment == nil || guardian == nil {
		return nil, nil
	}
	return &models.StagedRegistration{
		Enrollment: *enrollment.Enrollment,
		Guardian:   guardian.Guardian,
		CreatedAt:  enrollment.CreatedAt,
	}, nil
}

// Preview returns the staged data with its plan and class group for review before paying.
func (s *StagingService) Preview(ctx context.Context, session string) (*dto.RegistrationPreview, error) {
	if strings.TrimSpace(session) == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no registration in progress")
	}
	enrollment, err := s.load(ctx, session, models.StagedKindEnrollment)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no registration in progress")
	}
	guardian, err := s.load(ctx, session, models.StagedKindGuardian)
	if err != nil {
		return nil, err
	}

	preview := &dto.RegistrationPreview{
		Enrollment: *enrollment.Enrollment,
		ExpiresAt:  enrollment.CreatedAt.Add(enrollment.TTL).Format(time.RFC3339),
	}
	if guardian != nil {
		preview.Guardian = guardian.Guardian
	}
	if id := enrollment.Enrollment.PlanID; id != nil {
		plan, err := s.plans.FindByID(ctx, *id)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load plan")
		}
		preview.Plan = plan
	}
	if id := enrollment.Enrollment.AssignmentID; id != nil && s.catalog != nil {
		summary, err := s.catalog.AssignmentSummary(ctx, *id)
		if err != nil {
			s.logger.Warn("failed to load staged class group summary", zap.String("assignment_id", *id), zap.Error(err))
		} else {
			preview.Assignment = summary
		}
	}
	return preview, nil
}

// Clear drops every staged record of the session.
func (s *StagingService) Clear(ctx context.Context, session string) error {
	if err := s.store.Delete(ctx, session); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to clear staged registration")
	}
	return nil
}

func (s *StagingService) load(ctx context.Context, session string, kind models.StagedKind) (*models.StagedRecord, error) {
	record, err := s.store.Load(ctx, session, kind)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to read staged registration")
	}
	if record == nil {
		return nil, nil
	}
	if record.Expired(s.now()) || !record.Valid() {
		if err := s.store.Delete(ctx, session); err != nil {
			s.logger.Warn("failed to clear expired staging", zap.Error(err))
		}
		return nil, appErrors.ErrStagedDataExpired
	}
	return record, nil
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}

func normalizeRef(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
