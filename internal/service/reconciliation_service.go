package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

// Reconciliation triggers.
const (
	TriggerPaymentCreated       = "payment_created"
	TriggerPaymentStatusChanged = "payment_status_changed"
)

type reconPaymentRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Payment, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.PaymentStatus, reviewedBy *string) error
	ListByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) ([]models.Payment, error)
	ListProofsByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) ([]models.PaymentProof, error)
}

type reconEnrollmentRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enrollment, error)
	Confirm(ctx context.Context, exec sqlx.ExtContext, id string) error
	UpdatePaymentStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.EnrollmentPaymentStatus) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type reconRegistrationRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, registration *models.Registration) error
	FindByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) (*models.Registration, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.RegistrationStatus, referenceAmount float64) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	HasAssignment(ctx context.Context, exec sqlx.ExtContext, registrationID, assignmentID string) (bool, error)
	AttachAssignment(ctx context.Context, exec sqlx.ExtContext, registrationID, assignmentID string) error
	DetachAssignments(ctx context.Context, exec sqlx.ExtContext, registrationID string) error
}

type seatLocker interface {
	LockForUpdate(ctx context.Context, tx sqlx.ExtContext, id string) (*models.ClassGroupAssignment, error)
	CountOccupied(ctx context.Context, exec sqlx.ExtContext, id string) (int, error)
}

type reconStudentRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error)
	CountEnrollments(ctx context.Context, exec sqlx.ExtContext, studentID string) (int, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type reconGuardianRepository interface {
	CountStudents(ctx context.Context, exec sqlx.ExtContext, guardianID string) (int, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type proofCleanupScheduler interface {
	EnqueueProofCleanup(paths []string) error
}

// ReconciliationService keeps enrollment, seat and payment state consistent after payment events.
// Every entry point is explicit and returns a report instead of failing.
type ReconciliationService struct {
	tx            txProvider
	payments      reconPaymentRepository
	enrollments   reconEnrollmentRepository
	registrations reconRegistrationRepository
	seats         seatLocker
	students      reconStudentRepository
	guardians     reconGuardianRepository
	cleanup       proofCleanupScheduler
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewReconciliationService constructs a ReconciliationService.
func NewReconciliationService(
	tx txProvider,
	payments reconPaymentRepository,
	enrollments reconEnrollmentRepository,
	registrations reconRegistrationRepository,
	seats seatLocker,
	students reconStudentRepository,
	guardians reconGuardianRepository,
	cleanup proofCleanupScheduler,
	metrics *MetricsService,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		tx:            tx,
		payments:      payments,
		enrollments:   enrollments,
		registrations: registrations,
		seats:         seats,
		students:      students,
		guardians:     guardians,
		cleanup:       cleanup,
		metrics:       metrics,
		logger:        logger,
	}
}

// OnPaymentCreated reserves the enrollment's selected class group for a new payment.
// If no seat can be held the payment is forced to REJECTED and the rejection path runs.
func (s *ReconciliationService) OnPaymentCreated(ctx context.Context, paymentID string) *models.ReconciliationReport {
	report := &models.ReconciliationReport{PaymentID: paymentID, Trigger: TriggerPaymentCreated}
	defer s.finish(report)

	payment, enrollment, ok := s.load(ctx, paymentID, report)
	if !ok {
		return report
	}
	if enrollment.AssignmentID == nil {
		report.Skip("reserve_seat")
		return report
	}

	err := s.reserveSeat(ctx, enrollment)
	report.Add("reserve_seat", err)
	if err == nil {
		return report
	}

	forceErr := s.payments.UpdateStatus(ctx, nil, payment.ID, models.PaymentStatusRejected, nil)
	report.Add("force_reject_payment", forceErr)
	if forceErr != nil {
		return report
	}
	s.applyStatus(ctx, paymentID, report)
	return report
}

// OnPaymentStatusChanged applies a payment's current status to its enrollment.
func (s *ReconciliationService) OnPaymentStatusChanged(ctx context.Context, paymentID string) *models.ReconciliationReport {
	report := &models.ReconciliationReport{PaymentID: paymentID, Trigger: TriggerPaymentStatusChanged}
	defer s.finish(report)
	s.applyStatus(ctx, paymentID, report)
	return report
}

func (s *ReconciliationService) applyStatus(ctx context.Context, paymentID string, report *models.ReconciliationReport) {
	payment, enrollment, ok := s.load(ctx, paymentID, report)
	if !ok {
		return
	}

	switch {
	case payment.Status.Approved():
		if enrollment.Provisional {
			report.Add("confirm_enrollment", s.enrollments.Confirm(ctx, nil, enrollment.ID))
		} else {
			report.Skip("confirm_enrollment")
		}
		_, err := s.ensureRegistration(ctx, nil, enrollment)
		report.Add("ensure_registration", err)
		s.recompute(ctx, enrollment.ID, report)
	case payment.Status == models.PaymentStatusRejected && enrollment.Provisional:
		s.rollback(ctx, enrollment, report)
	default:
		s.recompute(ctx, enrollment.ID, report)
	}
}

func (s *ReconciliationService) load(ctx context.Context, paymentID string, report *models.ReconciliationReport) (*models.Payment, *models.Enrollment, bool) {
	payment, err := s.payments.FindByID(ctx, nil, paymentID)
	if err != nil {
		report.Add("load_payment", err)
		return nil, nil, false
	}
	enrollment, err := s.enrollments.FindByID(ctx, nil, payment.EnrollmentID)
	if err != nil {
		report.Add("load_enrollment", err)
		return nil, nil, false
	}
	return payment, enrollment, true
}

func (s *ReconciliationService) reserveSeat(ctx context.Context, enrollment *models.Enrollment) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reservation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	assignment, err := s.seats.LockForUpdate(ctx, tx, *enrollment.AssignmentID)
	if err != nil {
		return err
	}
	registration, err := s.ensureRegistration(ctx, tx, enrollment)
	if err != nil {
		return err
	}
	held, err := s.registrations.HasAssignment(ctx, tx, registration.ID, assignment.ID)
	if err != nil {
		return err
	}
	if !held {
		occupied, err := s.seats.CountOccupied(ctx, tx, assignment.ID)
		if err != nil {
			return err
		}
		if occupied >= assignment.Capacity {
			return appErrors.Clone(appErrors.ErrCapacityExceeded, "the selected class group is full")
		}
		if err := s.registrations.AttachAssignment(ctx, tx, registration.ID, assignment.ID); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reservation: %w", err)
	}
	return nil
}

func (s *ReconciliationService) ensureRegistration(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) (*models.Registration, error) {
	registration, err := s.registrations.FindByEnrollment(ctx, exec, enrollment.ID)
	if err == nil {
		return registration, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	registration = &models.Registration{EnrollmentID: enrollment.ID, StudentID: enrollment.StudentID}
	if err := s.registrations.Create(ctx, exec, registration); err != nil {
		return nil, err
	}
	return registration, nil
}

// recompute derives the enrollment payment status and registration activation from all payments.
func (s *ReconciliationService) recompute(ctx context.Context, enrollmentID string, report *models.ReconciliationReport) {
	payments, err := s.payments.ListByEnrollment(ctx, nil, enrollmentID)
	if err != nil {
		report.Add("load_payments", err)
		return
	}
	status := AggregatePaymentStatus(payments)
	report.Add("update_payment_status", s.enrollments.UpdatePaymentStatus(ctx, nil, enrollmentID, status))

	registration, err := s.registrations.FindByEnrollment(ctx, nil, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			report.Skip("update_registration")
			return
		}
		report.Add("update_registration", err)
		return
	}
	regStatus := models.RegistrationStatusInactive
	if status != models.EnrollmentPaymentPending {
		regStatus = models.RegistrationStatusActive
	}
	report.Add("update_registration", s.registrations.UpdateStatus(ctx, nil, registration.ID, regStatus, ReferenceAmount(payments)))
}

// rollback removes a provisional enrollment and everything created for it.
// Steps run in order and each failure is recorded without stopping the next step.
func (s *ReconciliationService) rollback(ctx context.Context, enrollment *models.Enrollment, report *models.ReconciliationReport) {
	s.metrics.RecordRollback()

	var paths []string
	proofs, err := s.payments.ListProofsByEnrollment(ctx, nil, enrollment.ID)
	report.Add("collect_proof_files", err)
	for _, proof := range proofs {
		paths = append(paths, proof.FilePath)
	}

	registration, err := s.registrations.FindByEnrollment(ctx, nil, enrollment.ID)
	switch {
	case err == nil:
		report.Add("detach_assignment", s.registrations.DetachAssignments(ctx, nil, registration.ID))
		report.Add("delete_registration", s.registrations.Delete(ctx, nil, registration.ID))
	case errors.Is(err, sql.ErrNoRows):
		report.Skip("detach_assignment")
		report.Skip("delete_registration")
	default:
		report.Add("load_registration", err)
	}

	student, studentErr := s.students.FindByID(ctx, nil, enrollment.StudentID)
	report.Add("delete_enrollment", s.enrollments.Delete(ctx, nil, enrollment.ID))

	studentDeleted := false
	if studentErr != nil {
		report.Add("delete_student", studentErr)
	} else {
		remaining, err := s.students.CountEnrollments(ctx, nil, student.ID)
		switch {
		case err != nil:
			report.Add("delete_student", err)
		case remaining > 0:
			report.Skip("delete_student")
		default:
			err = s.students.Delete(ctx, nil, student.ID)
			report.Add("delete_student", err)
			studentDeleted = err == nil
		}
	}

	if !studentDeleted || student.GuardianID == nil {
		report.Skip("delete_guardian")
	} else {
		remaining, err := s.guardians.CountStudents(ctx, nil, *student.GuardianID)
		switch {
		case err != nil:
			report.Add("delete_guardian", err)
		case remaining > 0:
			report.Skip("delete_guardian")
		default:
			report.Add("delete_guardian", s.guardians.Delete(ctx, nil, *student.GuardianID))
		}
	}

	if len(paths) == 0 || s.cleanup == nil {
		report.Skip("remove_proof_files")
	} else {
		report.Add("remove_proof_files", s.cleanup.EnqueueProofCleanup(paths))
	}
}

func (s *ReconciliationService) finish(report *models.ReconciliationReport) {
	failed := report.Failed()
	for _, step := range failed {
		s.logger.Error("reconciliation step failed",
			zap.String("payment_id", report.PaymentID),
			zap.String("trigger", report.Trigger),
			zap.String("step", step.Step),
			zap.Error(step.Err),
		)
	}
	s.logger.Info("reconciliation finished",
		zap.String("payment_id", report.PaymentID),
		zap.String("trigger", report.Trigger),
		zap.Int("steps", len(report.Steps)),
		zap.Int("failed", len(failed)),
	)
	s.metrics.RecordReconciliation(report.Trigger, len(failed) > 0)
}

// AggregatePaymentStatus derives an enrollment's payment status:
// TOTAL if any payment is COMPLETED, PARTIAL if any is PARTIAL, PENDING otherwise.
func AggregatePaymentStatus(payments []models.Payment) models.EnrollmentPaymentStatus {
	status := models.EnrollmentPaymentPending
	for _, p := range payments {
		switch p.Status {
		case models.PaymentStatusCompleted:
			return models.EnrollmentPaymentTotal
		case models.PaymentStatusPartial:
			status = models.EnrollmentPaymentPartial
		}
	}
	return status
}

// ReferenceAmount sums approved payment amounts.
func ReferenceAmount(payments []models.Payment) float64 {
	var total float64
	for _, p := range payments {
		if p.Status.Approved() {
			total += p.Amount
		}
	}
	return roundAmount(total)
}
