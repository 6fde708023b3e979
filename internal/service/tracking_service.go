package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
	"github.com/noah-isme/ceama-enrollment-api/pkg/export"
)

// DefaultMinRegularAmount is the smallest follow-up payment accepted from tracking.
const DefaultMinRegularAmount = 1.0

type trackingEnrollmentRepository interface {
	accessCodeStore
	FindDetailByAccessCode(ctx context.Context, code string) (*models.EnrollmentDetail, error)
	FindLatestByGuardianEmail(ctx context.Context, email string) (*models.EnrollmentDetail, error)
}

type trackingPaymentRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error
	CreateProof(ctx context.Context, exec sqlx.ExtContext, proof *models.PaymentProof) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Payment, error)
	ListByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) ([]models.Payment, error)
}

type accessCodeMailer interface {
	EnqueueAccessCode(notice AccessCodeNotice) error
}

type receiptRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// TrackingConfig bounds follow-up payments.
type TrackingConfig struct {
	MinAmount float64
	MaxAmount float64
	AppName   string
}

// Receipt is a rendered payment receipt.
type Receipt struct {
	Filename string
	Content  []byte
}

// TrackingService serves guardians following up an enrollment by access code.
type TrackingService struct {
	tx          txProvider
	enrollments trackingEnrollmentRepository
	payments    trackingPaymentRepository
	proofs      proofHandler
	reconciler  paymentReconciler
	codes       *accessCodeIssuer
	mailer      accessCodeMailer
	receipts    receiptRenderer
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         TrackingConfig
	now         func() time.Time
}

// NewTrackingService constructs a TrackingService.
func NewTrackingService(tx txProvider, enrollments trackingEnrollmentRepository, payments trackingPaymentRepository, proofs proofHandler, reconciler paymentReconciler, mailer accessCodeMailer, receipts receiptRenderer, validate *validator.Validate, logger *zap.Logger, cfg TrackingConfig) *TrackingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if receipts == nil {
		receipts = export.NewPDFExporter()
	}
	if cfg.MinAmount <= 0 {
		cfg.MinAmount = DefaultMinRegularAmount
	}
	if cfg.MaxAmount <= 0 {
		cfg.MaxAmount = DefaultMaxPaymentAmount
	}
	if cfg.AppName == "" {
		cfg.AppName = "CEAMA"
	}
	return &TrackingService{
		tx:          tx,
		enrollments: enrollments,
		payments:    payments,
		proofs:      proofs,
		reconciler:  reconciler,
		codes:       newAccessCodeIssuer(enrollments),
		mailer:      mailer,
		receipts:    receipts,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Lookup returns the enrollment and payments behind an access code.
func (s *TrackingService) Lookup(ctx context.Context, code string) (*dto.TrackingView, error) {
	detail, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByEnrollment(ctx, nil, detail.ID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load payments")
	}
	return buildTrackingView(detail, payments), nil
}

// Regularize records a follow-up payment for a tracked enrollment.
func (s *TrackingService) Regularize(ctx context.Context, code string, form dto.RegularizePaymentForm, uploads []ProofUpload) (*dto.PaymentSubmission, error) {
	form.Method = strings.ToUpper(strings.TrimSpace(form.Method))
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payment payload")
	}
	view, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if !view.CanSubmit {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "a payment is already pending review or the enrollment is fully paid")
	}
	amount, err := clampAmount(form.Amount, s.cfg.MinAmount, s.cfg.MaxAmount)
	if err != nil {
		return nil, err
	}
	method := models.PaymentMethod(form.Method)

	valid, err := s.proofs.Validate(uploads)
	if err != nil {
		return nil, err
	}
	stored, err := s.proofs.Store(valid)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		EnrollmentID:    view.EnrollmentID,
		Amount:          amount,
		Method:          method,
		RequestedStatus: models.PaymentStatusCompleted,
	}
	proofs, err := s.persist(ctx, payment, stored)
	if err != nil {
		s.proofs.Discard(stored)
		s.logger.Error("failed to record follow-up payment", zap.String("enrollment_id", view.EnrollmentID), zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to register payment")
	}

	s.reconciler.OnPaymentCreated(ctx, payment.ID)
	if reloaded, err := s.payments.FindByID(ctx, nil, payment.ID); err == nil {
		payment = reloaded
	}

	return &dto.PaymentSubmission{
		Payment:      *payment,
		Proofs:       proofs,
		EnrollmentID: payment.EnrollmentID,
		Message:      paymentRegisteredMessage,
	}, nil
}

func (s *TrackingService) persist(ctx context.Context, payment *models.Payment, stored []StoredProof) (proofs []models.PaymentProof, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.payments.Create(ctx, tx, payment); err != nil {
		return nil, err
	}
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
		return nil, fmt.Errorf("commit payment: %w", err)
	}
	return proofs, nil
}

// ResendCode queues the access code email for the guardian's latest enrollment.
func (s *TrackingService) ResendCode(ctx context.Context, req dto.ResendCodeRequest) error {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrValidation, "invalid email")
	}
	detail, err := s.enrollments.FindLatestByGuardianEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no enrollment is registered with this email")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load enrollment")
	}
	code, err := s.codes.Ensure(ctx, detail.ID)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to issue access code")
	}

	notice := AccessCodeNotice{
		To:          req.Email,
		StudentName: detail.StudentName(),
		AccessCode:  code,
	}
	if detail.GuardianName != nil {
		notice.GuardianName = *detail.GuardianName
	}
	if err := s.mailer.EnqueueAccessCode(notice); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to queue access code email")
	}
	return nil
}

// Receipt renders a PDF listing the approved payments of the enrollment.
func (s *TrackingService) Receipt(ctx context.Context, code string) (*Receipt, error) {
	detail, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByEnrollment(ctx, nil, detail.ID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load payments")
	}

	rows := make([]map[string]string, 0, len(payments))
	for _, p := range payments {
		if !p.Status.Approved() {
			continue
		}
		rows = append(rows, map[string]string{
			"Fecha":  p.CreatedAt.Format("2006-01-02"),
			"Metodo": string(p.Method),
			"Estado": paymentStatusLabel(p.Status),
			"Monto":  fmt.Sprintf("S/ %.2f", p.Amount),
		})
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "the enrollment has no approved payments")
	}

	doc := export.Document{
		Title: s.cfg.AppName + " - Constancia de pago",
		Summary: []export.Field{
			{Label: "Codigo", Value: *detail.AccessCode},
			{Label: "Estudiante", Value: detail.StudentName()},
			{Label: "Grado", Value: detail.Grade},
			{Label: "Plan", Value: detail.PlanName},
			{Label: "Total aprobado", Value: fmt.Sprintf("S/ %.2f", ReferenceAmount(payments))},
		},
		Table: export.Dataset{
			Headers: []string{"Fecha", "Metodo", "Estado", "Monto"},
			Rows:    rows,
		},
		Footer: "Emitido el " + s.now().Format("2006-01-02 15:04"),
	}
	content, err := s.receipts.Render(doc)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to render receipt")
	}
	return &Receipt{
		Filename: fmt.Sprintf("constancia-%s.pdf", strings.ToLower(*detail.AccessCode)),
		Content:  content,
	}, nil
}

func (s *TrackingService) findByCode(ctx context.Context, code string) (*models.EnrollmentDetail, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "access code is required")
	}
	detail, err := s.enrollments.FindDetailByAccessCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "access code not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load enrollment")
	}
	return detail, nil
}

func buildTrackingView(detail *models.EnrollmentDetail, payments []models.Payment) *dto.TrackingView {
	view := &dto.TrackingView{
		EnrollmentID:  detail.ID,
		StudentName:   detail.StudentName(),
		Grade:         detail.Grade,
		PlanName:      detail.PlanName,
		Status:        detail.Status,
		PaymentStatus: detail.PaymentStatus,
		Payments:      payments,
	}
	if view.Payments == nil {
		view.Payments = []models.Payment{}
	}
	if detail.AccessCode != nil {
		view.AccessCode = *detail.AccessCode
	}
	for _, p := range payments {
		if p.Status == models.PaymentStatusPending {
			view.HasPending = true
			break
		}
	}
	view.CanSubmit = detail.PaymentStatus != models.EnrollmentPaymentTotal && !view.HasPending
	return view
}
