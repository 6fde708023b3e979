package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/internal/service"
	"github.com/noah-isme/ceama-enrollment-api/pkg/middleware/session"
	"github.com/noah-isme/ceama-enrollment-api/pkg/response"
)

type paymentSubmitter interface {
	SubmitPayment(ctx context.Context, req service.SubmitPaymentRequest) (*dto.PaymentSubmission, error)
}

// PaymentHandler accepts payment submissions that finish a registration.
type PaymentHandler struct {
	reservations paymentSubmitter
	validator    *validator.Validate
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(reservations paymentSubmitter, validate *validator.Validate) *PaymentHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentHandler{reservations: reservations, validator: validate}
}

// Submit godoc
// @Summary Submit a payment with proofs
// @Description Persists the staged registration together with the payment, or records a payment for an existing enrollment.
// @Tags Payments
// @Accept multipart/form-data
// @Produce json
// @Param inscripcion_id formData string false "Existing enrollment ID"
// @Param amount formData number true "Amount in soles"
// @Param method formData string true "TRANSFER, YAPE or PLIN"
// @Param requested_status formData string false "PARTIAL or COMPLETED"
// @Param files formData file true "Payment proofs"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Submit(c *gin.Context) {
	var form dto.SubmitPaymentForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, invalidPayload(err, "invalid payment payload"))
		return
	}
	form.Method = strings.ToUpper(strings.TrimSpace(form.Method))
	form.RequestedStatus = strings.ToUpper(strings.TrimSpace(form.RequestedStatus))
	if err := h.validator.Struct(form); err != nil {
		response.Error(c, invalidPayload(err, "invalid payment payload"))
		return
	}

	uploads, closeUploads, err := proofUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeUploads()

	result, err := h.reservations.SubmitPayment(c.Request.Context(), service.SubmitPaymentRequest{
		SessionID:       session.Value(c),
		EnrollmentID:    strings.TrimSpace(form.EnrollmentID),
		Amount:          form.Amount,
		Method:          models.PaymentMethod(form.Method),
		RequestedStatus: models.PaymentStatus(form.RequestedStatus),
		Proofs:          uploads,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
