package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/pkg/mail"
)

// PaymentApprovedNotice is the content of the approval email.
type PaymentApprovedNotice struct {
	To           string
	GuardianName string
	StudentName  string
	PlanName     string
	Status       models.PaymentStatus
	Amount       float64
	AccessCode   string
}

// AccessCodeNotice is the content of the access code email.
type AccessCodeNotice struct {
	To           string
	GuardianName string
	StudentName  string
	AccessCode   string
}

// NotificationConfig is injected from mail configuration.
type NotificationConfig struct {
	SiteBaseURL  string
	TrackingPath string
}

// NotificationService renders and sends guardian emails.
type NotificationService struct {
	mailer mail.Mailer
	cfg    NotificationConfig
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(mailer mail.Mailer, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TrackingPath == "" {
		cfg.TrackingPath = "/seguimiento/"
	}
	cfg.SiteBaseURL = strings.TrimRight(cfg.SiteBaseURL, "/")
	return &NotificationService{mailer: mailer, cfg: cfg, logger: logger}
}

// TrackingURL is the absolute link a guardian follows to see their payments.
func (s *NotificationService) TrackingURL(code string) string {
	p := "/" + strings.Trim(s.cfg.TrackingPath, "/") + "/"
	return s.cfg.SiteBaseURL + p + code
}

// PaymentApproved emails the guardian that a payment was approved.
func (s *NotificationService) PaymentApproved(ctx context.Context, notice PaymentApprovedNotice) error {
	text, html, err := renderEmail(emailTemplatePaymentApproved, emailData{
		GuardianName: notice.GuardianName,
		StudentName:  notice.StudentName,
		PlanName:     notice.PlanName,
		StatusLabel:  paymentStatusLabel(notice.Status),
		Amount:       fmt.Sprintf("S/ %.2f", notice.Amount),
		AccessCode:   notice.AccessCode,
		TrackingURL:  s.TrackingURL(notice.AccessCode),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, "payment_approved", mail.Message{
		To:          []mail.Address{{Name: notice.GuardianName, Email: notice.To}},
		Subject:     "Confirmación de pago",
		TextContent: text,
		HTMLContent: html,
	})
}

// AccessCode emails the guardian their tracking access code.
func (s *NotificationService) AccessCode(ctx context.Context, notice AccessCodeNotice) error {
	text, html, err := renderEmail(emailTemplateAccessCode, emailData{
		GuardianName: notice.GuardianName,
		StudentName:  notice.StudentName,
		AccessCode:   notice.AccessCode,
		TrackingURL:  s.TrackingURL(notice.AccessCode),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, "access_code", mail.Message{
		To:          []mail.Address{{Name: notice.GuardianName, Email: notice.To}},
		Subject:     "Código de acceso para pagos",
		TextContent: text,
		HTMLContent: html,
	})
}

func (s *NotificationService) send(ctx context.Context, kind string, msg mail.Message) error {
	if s.mailer == nil {
		return fmt.Errorf("mailer not configured")
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("email delivery failed", zap.String("kind", kind), zap.Error(err))
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	return nil
}

func paymentStatusLabel(status models.PaymentStatus) string {
	switch status {
	case models.PaymentStatusPartial:
		return "Parcial"
	case models.PaymentStatusCompleted:
		return "Completado"
	case models.PaymentStatusRejected:
		return "Rechazado"
	default:
		return "Pendiente"
	}
}
