package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

const (
	paymentDecisionApproved = "approved"
	paymentDecisionRejected = "rejected"

	paymentHistoryLimit = 50
)

type reviewPaymentRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Payment, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.PaymentStatus, reviewedBy *string) error
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentQueueItem, int, error)
}

type reviewEnrollmentRepository interface {
	accessCodeStore
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type reviewAuditTrail interface {
	auditLogger
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditEntry, error)
}

type approvalNotifier interface {
	PaymentApproved(ctx context.Context, notice PaymentApprovedNotice) error
}

// PaymentReviewService applies staff decisions to submitted payments.
type PaymentReviewService struct {
	payments    reviewPaymentRepository
	enrollments reviewEnrollmentRepository
	reconciler  paymentReconciler
	codes       *accessCodeIssuer
	notifier    approvalNotifier
	audit       reviewAuditTrail
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPaymentReviewService constructs a PaymentReviewService.
func NewPaymentReviewService(payments reviewPaymentRepository, enrollments reviewEnrollmentRepository, reconciler paymentReconciler, notifier approvalNotifier, audit reviewAuditTrail, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PaymentReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentReviewService{
		payments:    payments,
		enrollments: enrollments,
		reconciler:  reconciler,
		codes:       newAccessCodeIssuer(enrollments),
		notifier:    notifier,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// List returns the staff review queue, newest first.
func (s *PaymentReviewService) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentQueueItem, *models.Pagination, error) {
	filter.Status = models.PaymentStatus(strings.ToUpper(strings.TrimSpace(string(filter.Status))))
	filter.Method = models.PaymentMethod(strings.ToUpper(strings.TrimSpace(string(filter.Method))))
	switch filter.Status {
	case "", models.PaymentStatusPending, models.PaymentStatusPartial, models.PaymentStatusCompleted, models.PaymentStatusRejected:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment status")
	}
	if filter.Method != "" && !filter.Method.IsValid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment method")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	items, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list payments")
	}
	if items == nil {
		items = []models.PaymentQueueItem{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Approve marks a payment PARTIAL or COMPLETED, confirms its enrollment, issues the access
// code and emails the guardian. A failed email is reported as a warning only.
func (s *PaymentReviewService) Approve(ctx context.Context, paymentID string, req dto.ApprovePaymentRequest, actor *models.JWTClaims) (*dto.ReviewResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid approval payload")
	}
	payment, err := s.load(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "a rejected payment cannot be approved")
	}

	status := payment.RequestedStatus
	if req.Status != nil {
		status = *req.Status
	}
	if !status.Approved() {
		status = models.PaymentStatusCompleted
	}

	previous := payment.Status
	if err := s.payments.UpdateStatus(ctx, nil, payment.ID, status, reviewerID(actor)); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to update payment")
	}
	s.reconciler.OnPaymentStatusChanged(ctx, payment.ID)

	result := &dto.ReviewResult{}
	code, err := s.codes.Ensure(ctx, payment.EnrollmentID)
	if err != nil {
		s.logger.Error("failed to issue access code", zap.String("enrollment_id", payment.EnrollmentID), zap.Error(err))
		result.NotificationWarning = "access code could not be issued; approval email not sent"
		s.metrics.RecordNotificationFailure("payment_approved")
	} else {
		result.AccessCode = &code
		s.notifyApproval(ctx, payment.EnrollmentID, status, payment.Amount, code, result)
	}

	if updated, err := s.payments.FindByID(ctx, nil, payment.ID); err == nil {
		payment = updated
	}
	result.Payment = *payment

	s.emitAudit(ctx, actor, models.AuditActionPaymentApprove, payment.ID, previous, status)
	s.metrics.RecordPaymentDecision(paymentDecisionApproved)
	return result, nil
}

// Reject marks a payment REJECTED. A provisional enrollment is rolled back.
func (s *PaymentReviewService) Reject(ctx context.Context, paymentID string, actor *models.JWTClaims) (*dto.ReviewResult, error) {
	payment, err := s.load(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status.Approved() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "an approved payment cannot be rejected")
	}
	if payment.Status == models.PaymentStatusRejected {
		// Repeated rejects only re-run reconciliation; no new decision is recorded.
		s.reconciler.OnPaymentStatusChanged(ctx, payment.ID)
		return &dto.ReviewResult{Payment: *payment}, nil
	}

	provisional := false
	if enrollment, err := s.enrollments.FindByID(ctx, nil, payment.EnrollmentID); err == nil {
		provisional = enrollment.Provisional
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load enrollment")
	}

	previous := payment.Status
	if err := s.payments.UpdateStatus(ctx, nil, payment.ID, models.PaymentStatusRejected, reviewerID(actor)); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to update payment")
	}
	report := s.reconciler.OnPaymentStatusChanged(ctx, payment.ID)

	payment.Status = models.PaymentStatusRejected
	payment.ReviewedBy = reviewerID(actor)

	s.emitAudit(ctx, actor, models.AuditActionPaymentReject, payment.ID, previous, models.PaymentStatusRejected)
	s.metrics.RecordPaymentDecision(paymentDecisionRejected)
	return &dto.ReviewResult{Payment: *payment, RolledBack: provisional && report != nil && report.Err() == nil}, nil
}

// History returns the payment with every staff decision recorded against it, newest first.
func (s *PaymentReviewService) History(ctx context.Context, paymentID string) (*dto.PaymentHistory, error) {
	payment, err := s.load(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	history := &dto.PaymentHistory{Payment: *payment, Entries: []models.AuditEntry{}}
	if s.audit == nil {
		return history, nil
	}
	entries, err := s.audit.ListByResource(ctx, models.AuditResourcePayment, payment.ID, paymentHistoryLimit)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load payment history")
	}
	history.Entries = entries
	return history, nil
}

func (s *PaymentReviewService) load(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, nil, strings.TrimSpace(paymentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load payment")
	}
	return payment, nil
}

func (s *PaymentReviewService) notifyApproval(ctx context.Context, enrollmentID string, status models.PaymentStatus, amount float64, code string, result *dto.ReviewResult) {
	detail, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		s.logger.Warn("failed to load enrollment for notification", zap.String("enrollment_id", enrollmentID), zap.Error(err))
		result.NotificationWarning = "approval email could not be prepared"
		s.metrics.RecordNotificationFailure("payment_approved")
		return
	}
	if detail.GuardianEmail == nil || strings.TrimSpace(*detail.GuardianEmail) == "" {
		result.NotificationWarning = "guardian has no email address"
		return
	}

	notice := PaymentApprovedNotice{
		To:          *detail.GuardianEmail,
		StudentName: detail.StudentName(),
		PlanName:    detail.PlanName,
		Status:      status,
		Amount:      amount,
		AccessCode:  code,
	}
	if detail.GuardianName != nil {
		notice.GuardianName = *detail.GuardianName
	}
	if err := s.notifier.PaymentApproved(ctx, notice); err != nil {
		s.logger.Warn("approval email failed", zap.String("enrollment_id", enrollmentID), zap.Error(err))
		result.NotificationWarning = "payment approved but the email could not be sent"
		s.metrics.RecordNotificationFailure("payment_approved")
		return
	}
	result.Notified = true
}

func (s *PaymentReviewService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, paymentID string, from, to models.PaymentStatus) {
	if s.audit == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"status": string(from)})
	newValues, _ := json.Marshal(map[string]string{"status": string(to)})
	id := paymentID
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     reviewerID(actor),
		Action:     action,
		Resource:   models.AuditResourcePayment,
		ResourceID: &id,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  "payment-review",
	}); err != nil {
		s.logger.Warn("failed to write audit log", zap.Error(err), zap.String("action", action))
	}
}

func reviewerID(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}
