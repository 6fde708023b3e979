package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/service"
	"github.com/noah-isme/ceama-enrollment-api/pkg/response"
)

type trackingService interface {
	Lookup(ctx context.Context, code string) (*dto.TrackingView, error)
	Regularize(ctx context.Context, code string, form dto.RegularizePaymentForm, uploads []service.ProofUpload) (*dto.PaymentSubmission, error)
	ResendCode(ctx context.Context, req dto.ResendCodeRequest) error
	Receipt(ctx context.Context, code string) (*service.Receipt, error)
}

// TrackingHandler serves guardians following an enrollment by access code.
type TrackingHandler struct {
	tracking trackingService
}

// NewTrackingHandler constructs TrackingHandler.
func NewTrackingHandler(tracking trackingService) *TrackingHandler {
	return &TrackingHandler{tracking: tracking}
}

// Lookup godoc
// @Summary Show enrollment and payments for an access code
// @Tags Tracking
// @Produce json
// @Param code path string true "Access code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tracking/{code} [get]
func (h *TrackingHandler) Lookup(c *gin.Context) {
	view, err := h.tracking.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Regularize godoc
// @Summary Submit a follow-up payment
// @Tags Tracking
// @Accept multipart/form-data
// @Produce json
// @Param code path string true "Access code"
// @Param amount formData number true "Amount in soles"
// @Param method formData string true "TRANSFER, YAPE or PLIN"
// @Param files formData file true "Payment proofs"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /tracking/{code}/payments [post]
func (h *TrackingHandler) Regularize(c *gin.Context) {
	var form dto.RegularizePaymentForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, invalidPayload(err, "invalid payment payload"))
		return
	}
	uploads, closeUploads, err := proofUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeUploads()

	result, err := h.tracking.Regularize(c.Request.Context(), c.Param("code"), form, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ResendCode godoc
// @Summary Email the access code again
// @Description Queues the email for the latest enrollment of the guardian.
// @Tags Tracking
// @Accept json
// @Produce json
// @Param payload body dto.ResendCodeRequest true "Guardian email"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tracking/resend-code [post]
func (h *TrackingHandler) ResendCode(c *gin.Context) {
	var req dto.ResendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid resend payload"))
		return
	}
	if err := h.tracking.ResendCode(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"message": "Te enviaremos tu código de acceso por correo en unos minutos."})
}

// Receipt godoc
// @Summary Download the payment receipt
// @Tags Tracking
// @Produce application/pdf
// @Param code path string true "Access code"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /tracking/{code}/receipt [get]
func (h *TrackingHandler) Receipt(c *gin.Context) {
	receipt, err := h.tracking.Receipt(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, receipt.Filename, "application/pdf", receipt.Content)
}
