package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

// DefaultMaxPaymentAmount caps a single payment.
const DefaultMaxPaymentAmount = 999.99

const paymentRegisteredMessage = "Payment registered. Pending confirmation by administration."

// Reservation outcomes reported to metrics.
const (
	reservationOutcomeCreated  = "created"
	reservationOutcomeCapacity = "capacity_exceeded"
	reservationOutcomeConflict = "duplicate"
	reservationOutcomeExpired  = "expired"
	reservationOutcomeFailed   = "failed"
)

type reservationGuardianRepository interface {
	FindByDNI(ctx context.Context, exec sqlx.ExtContext, dni string) (*models.Guardian, error)
	Create(ctx context.Context, exec sqlx.ExtContext, guardian *models.Guardian) error
	UpdateContact(ctx context.Context, exec sqlx.ExtContext, guardian *models.Guardian) error
}

type reservationStudentRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
}

type reservationEnrollmentRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enrollment, error)
}

type reservationRegistrationRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, registration *models.Registration) error
	AttachAssignment(ctx context.Context, exec sqlx.ExtContext, registrationID, assignmentID string) error
}

type reservationPlanRepository interface {
	FindByID(ctx context.Context, id string) (*models.Plan, error)
	FirstActive(ctx context.Context) (*models.Plan, error)
}

type reservationPaymentRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error
	CreateProof(ctx context.Context, exec sqlx.ExtContext, proof *models.PaymentProof) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Payment, error)
}

type stagedResolver interface {
	Resolve(ctx context.Context, session string) (*models.StagedRegistration, error)
	Clear(ctx context.Context, session string) error
}

type proofHandler interface {
	Validate(uploads []ProofUpload) ([]ProofUpload, error)
	Store(uploads []ProofUpload) ([]StoredProof, error)
	Discard(stored []StoredProof)
}

type paymentReconciler interface {
	OnPaymentCreated(ctx context.Context, paymentID string) *models.ReconciliationReport
	OnPaymentStatusChanged(ctx context.Context, paymentID string) *models.ReconciliationReport
}

// SubmitPaymentRequest is a payment submission for an existing enrollment or for staged data.
type SubmitPaymentRequest struct {
	SessionID       string
	EnrollmentID    string
	Amount          float64
	Method          models.PaymentMethod
	RequestedStatus models.PaymentStatus
	Proofs          []ProofUpload
}

// ReservationConfig bounds payment amounts.
type ReservationConfig struct {
	MaxAmount float64
}

// ReservationService turns staged registrations into persisted enrollments with a payment.
type ReservationService struct {
	tx            txProvider
	guardians     reservationGuardianRepository
	students      reservationStudentRepository
	enrollments   reservationEnrollmentRepository
	registrations reservationRegistrationRepository
	seats         seatLocker
	plans         reservationPlanRepository
	payments      reservationPaymentRepository
	staging       stagedResolver
	proofs        proofHandler
	reconciler    paymentReconciler
	metrics       *MetricsService
	logger        *zap.Logger
	cfg           ReservationConfig
}

// ReservationDeps groups the collaborators of ReservationService.
type ReservationDeps struct {
	Tx            txProvider
	Guardians     reservationGuardianRepository
	Students      reservationStudentRepository
	Enrollments   reservationEnrollmentRepository
	Registrations reservationRegistrationRepository
	Seats         seatLocker
	Plans         reservationPlanRepository
	Payments      reservationPaymentRepository
	Staging       stagedResolver
	Proofs        proofHandler
	Reconciler    paymentReconciler
	Metrics       *MetricsService
}

// NewReservationService constructs a ReservationService.
func NewReservationService(deps ReservationDeps, cfg ReservationConfig, logger *zap.Logger) *ReservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAmount <= 0 {
		cfg.MaxAmount = DefaultMaxPaymentAmount
	}
	return &ReservationService{
		tx:            deps.Tx,
		guardians:     deps.Guardians,
		students:      deps.Students,
		enrollments:   deps.Enrollments,
		registrations: deps.Registrations,
		seats:         deps.Seats,
		plans:         deps.Plans,
		payments:      deps.Payments,
		staging:       deps.Staging,
		proofs:        deps.Proofs,
		reconciler:    deps.Reconciler,
		metrics:       deps.Metrics,
		logger:        logger,
		cfg:           cfg,
	}
}

// SubmitPayment records a payment with its proofs. Without an enrollment id the staged
// registration of the session is persisted in the same transaction, holding a seat in the
// selected class group.
func (s *ReservationService) SubmitPayment(ctx context.Context, req SubmitPaymentRequest) (*dto.PaymentSubmission, error) {
	amount, err := s.validatePayment(&req)
	if err != nil {
		return nil, err
	}

	var (
		existing *models.Enrollment
		staged   *models.StagedRegistration
	)
	if id := strings.TrimSpace(req.EnrollmentID); id != "" {
		existing, err = s.enrollments.FindByID(ctx, nil, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load enrollment")
		}
	} else {
		staged, err = s.staging.Resolve(ctx, req.SessionID)
		if err != nil {
			if appErrors.IsCode(err, appErrors.ErrStagedDataExpired.Code) {
				s.metrics.RecordReservation(reservationOutcomeExpired)
			}
			return nil, err
		}
		if staged == nil || staged.Guardian == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "missing enrollment or staged data")
		}
	}

	uploads, err := s.proofs.Validate(req.Proofs)
	if err != nil {
		return nil, err
	}
	stored, err := s.proofs.Store(uploads)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		Amount:          amount,
		Method:          req.Method,
		RequestedStatus: req.RequestedStatus,
	}
	start := time.Now()
	proofs, err := s.persist(ctx, existing, staged, payment, stored)
	s.metrics.ObserveDBQuery("reservation_tx", time.Since(start))
	if err != nil {
		s.proofs.Discard(stored)
		s.metrics.RecordReservation(reservationOutcome(err))
		return nil, s.translateError(err)
	}
	s.metrics.RecordReservation(reservationOutcomeCreated)

	if staged != nil {
		if err := s.staging.Clear(ctx, req.SessionID); err != nil {
			s.logger.Warn("failed to clear staged registration", zap.String("payment_id", payment.ID), zap.Error(err))
		}
	}

	s.reconciler.OnPaymentCreated(ctx, payment.ID)

	if reloaded, err := s.payments.FindByID(ctx, nil, payment.ID); err == nil {
		payment = reloaded
	} else {
		s.logger.Warn("failed to reload payment", zap.String("payment_id", payment.ID), zap.Error(err))
	}

	return &dto.PaymentSubmission{
		Payment:      *payment,
		Proofs:       proofs,
		EnrollmentID: payment.EnrollmentID,
		Message:      paymentRegisteredMessage,
	}, nil
}

func (s *ReservationService) validatePayment(req *SubmitPaymentRequest) (float64, error) {
	if !req.Method.IsValid() {
		return 0, appErrors.Clone(appErrors.ErrValidation, "payment method must be TRANSFER, YAPE or PLIN")
	}
	if req.RequestedStatus == "" {
		req.RequestedStatus = models.PaymentStatusCompleted
	}
	if !req.RequestedStatus.Approved() {
		return 0, appErrors.Clone(appErrors.ErrValidation, "requested status must be PARTIAL or COMPLETED")
	}
	return clampAmount(req.Amount, 0, s.cfg.MaxAmount)
}

// clampAmount rounds to cents, rejects amounts not above min and caps at max.
func clampAmount(amount, min, max float64) (float64, error) {
	amount = roundAmount(amount)
	if amount <= 0 || amount < min {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("amount must be at least %.2f", maxFloat(min, 0.01)))
	}
	if amount > max {
		amount = max
	}
	return amount, nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func (s *ReservationService) persist(ctx context.Context, existing *models.Enrollment, staged *models.StagedRegistration, payment *models.Payment, stored []StoredProof) (proofs []models.PaymentProof, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reservation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	enrollmentID := ""
	if existing != nil {
		enrollmentID = existing.ID
	} else {
		enrollmentID, err = s.reserve(ctx, tx, staged)
		if err != nil {
			return nil, err
		}
	}

	payment.EnrollmentID = enrollmentID
	if err = s.payments.Create(ctx, tx, payment); err != nil {
		return nil, err
	}
	proofs = make([]models.PaymentProof, 0, len(stored))
	for _, file := range stored {
		proof := models.PaymentProof{
			PaymentID:    payment.ID,
			FilePath:     file.Path,
			OriginalName: file.OriginalName,
			ContentType:  file.ContentType,
			SizeBytes:    file.SizeBytes,
		}
		if err = s.payments.CreateProof(ctx, tx, &proof); err != nil {
			return nil, err
		}
		proofs = append(proofs, proof)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reservation: %w", err)
	}
	return proofs, nil
}

// reserve holds a seat in the selected class group under its row lock, then persists the
// staged guardian, student, enrollment and registration.
func (s *ReservationService) reserve(ctx context.Context, tx *sqlx.Tx, staged *models.StagedRegistration) (string, error) {
	data := staged.Enrollment
	var (
		assignment *models.ClassGroupAssignment
		err        error
	)
	if data.AssignmentID != nil {
		assignment, err = s.seats.LockForUpdate(ctx, tx, *data.AssignmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", appErrors.Clone(appErrors.ErrValidation, "class group not found")
			}
			return "", err
		}
		occupied, err := s.seats.CountOccupied(ctx, tx, assignment.ID)
		if err != nil {
			return "", err
		}
		if occupied >= assignment.Capacity {
			return "", appErrors.Clone(appErrors.ErrCapacityExceeded, "the selected class group is full")
		}
	}

	planID, err := s.resolvePlan(ctx, data, assignment)
	if err != nil {
		return "", err
	}

	guardian, err := s.upsertGuardian(ctx, tx, *staged.Guardian)
	if err != nil {
		return "", err
	}
	student := &models.Student{
		FirstName:  data.FirstName,
		LastName:   data.LastName,
		Age:        data.Age,
		Grade:      data.Grade,
		School:     data.School,
		GuardianID: &guardian.ID,
	}
	if err := s.students.Create(ctx, tx, student); err != nil {
		return "", err
	}

	enrollment := &models.Enrollment{
		StudentID:   student.ID,
		PlanID:      planID,
		Provisional: true,
	}
	if assignment != nil {
		enrollment.AssignmentID = &assignment.ID
	}
	if err := s.enrollments.Create(ctx, tx, enrollment); err != nil {
		return "", err
	}

	registration := &models.Registration{EnrollmentID: enrollment.ID, StudentID: student.ID}
	if err := s.registrations.Create(ctx, tx, registration); err != nil {
		return "", err
	}
	if assignment != nil {
		if err := s.registrations.AttachAssignment(ctx, tx, registration.ID, assignment.ID); err != nil {
			return "", err
		}
	}
	return enrollment.ID, nil
}

// mergeGuardianContact copies the staged fields that carry a value; blank ones keep what is stored.
func mergeGuardianContact(guardian *models.Guardian, data models.StagedGuardian) {
	keep := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	keep(&guardian.FirstName, data.FirstName)
	keep(&guardian.LastName, data.LastName)
	keep(&guardian.Phone, data.Phone)
	keep(&guardian.Address, data.Address)
	if data.Email != nil && strings.TrimSpace(*data.Email) != "" {
		email := strings.TrimSpace(*data.Email)
		guardian.Email = &email
	}
}

func (s *ReservationService) upsertGuardian(ctx context.Context, tx *sqlx.Tx, data models.StagedGuardian) (*models.Guardian, error) {
	guardian, err := s.guardians.FindByDNI(ctx, tx, data.DNI)
	switch {
	case err == nil:
		mergeGuardianContact(guardian, data)
		if err := s.guardians.UpdateContact(ctx, tx, guardian); err != nil {
			return nil, err
		}
		return guardian, nil
	case errors.Is(err, sql.ErrNoRows):
		guardian = &models.Guardian{
			DNI:       data.DNI,
			FirstName: data.FirstName,
			LastName:  data.LastName,
			Phone:     data.Phone,
			Email:     data.Email,
			Address:   data.Address,
		}
		if err := s.guardians.Create(ctx, tx, guardian); err != nil {
			return nil, err
		}
		return guardian, nil
	default:
		return nil, err
	}
}

func (s *ReservationService) resolvePlan(ctx context.Context, data models.StagedEnrollment, assignment *models.ClassGroupAssignment) (string, error) {
	if data.PlanID != nil {
		plan, err := s.plans.FindByID(ctx, *data.PlanID)
		if err == nil {
			return plan.ID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
	}
	if assignment != nil {
		return assignment.PlanID, nil
	}
	plan, err := s.plans.FirstActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrValidation, "no plan is available for enrollment")
		}
		return "", err
	}
	return plan.ID, nil
}

func (s *ReservationService) translateError(err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error("reservation failed", zap.Error(err))
	return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to register payment")
}

func reservationOutcome(err error) string {
	switch {
	case appErrors.IsCode(err, appErrors.ErrCapacityExceeded.Code):
		return reservationOutcomeCapacity
	case appErrors.IsCode(err, appErrors.ErrDuplicate.Code):
		return reservationOutcomeConflict
	default:
		return reservationOutcomeFailed
	}
}
