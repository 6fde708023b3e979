package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
	"github.com/noah-isme/ceama-enrollment-api/pkg/response"
)

type reviewService interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentQueueItem, *models.Pagination, error)
	Approve(ctx context.Context, paymentID string, req dto.ApprovePaymentRequest, actor *models.JWTClaims) (*dto.ReviewResult, error)
	Reject(ctx context.Context, paymentID string, actor *models.JWTClaims) (*dto.ReviewResult, error)
	History(ctx context.Context, paymentID string) (*dto.PaymentHistory, error)
}

type proofAccess interface {
	Links(ctx context.Context, paymentID string, actor *models.JWTClaims) ([]dto.ProofLink, error)
	Download(ctx context.Context, token string, actor *models.JWTClaims) (*service.ProofDownload, error)
}

// ReviewHandler serves the staff payment review queue.
type ReviewHandler struct {
	reviews reviewService
	proofs  proofAccess
}

// NewReviewHandler constructs ReviewHandler.
func NewReviewHandler(reviews reviewService, proofs proofAccess) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, proofs: proofs}
}

// List godoc
// @Summary List submitted payments
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param status query string false "PENDING, PARTIAL, COMPLETED or REJECTED"
// @Param method query string false "TRANSFER, YAPE or PLIN"
// @Param search query string false "Student name, guardian DNI or access code"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/payments [get]
func (h *ReviewHandler) List(c *gin.Context) {
	filter := models.PaymentFilter{
		Status: models.PaymentStatus(c.Query("status")),
		Method: models.PaymentMethod(c.Query("method")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	items, pagination, err := h.reviews.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Approve godoc
// @Summary Approve a payment
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param payload body dto.ApprovePaymentRequest false "Optional status override"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/payments/{id}/approve [post]
func (h *ReviewHandler) Approve(c *gin.Context) {
	actor := claimsFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ApprovePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, invalidPayload(err, "invalid approval payload"))
		return
	}
	if req.Status != nil {
		status := models.PaymentStatus(strings.ToUpper(string(*req.Status)))
		req.Status = &status
	}
	result, err := h.reviews.Approve(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject a payment
// @Description Rejecting the only payment of a provisional enrollment removes the enrollment.
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/payments/{id}/reject [post]
func (h *ReviewHandler) Reject(c *gin.Context) {
	actor := claimsFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.reviews.Reject(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary Audit trail of a payment
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/payments/{id}/history [get]
func (h *ReviewHandler) History(c *gin.Context) {
	history, err := h.reviews.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// ProofLinks godoc
// @Summary Signed download links for payment proofs
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /admin/payments/{id}/proofs [get]
func (h *ReviewHandler) ProofLinks(c *gin.Context) {
	links, err := h.proofs.Links(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, nil)
}

// DownloadProof godoc
// @Summary Stream a payment proof
// @Tags Review
// @Produce octet-stream
// @Security BearerAuth
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /admin/proofs/download [get]
func (h *ReviewHandler) DownloadProof(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.proofs.Download(c.Request.Context(), token, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	contentType := download.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, no-store")
	c.DataFromReader(http.StatusOK, download.SizeBytes, contentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf(`inline; filename="%s"`, download.Filename),
	})
}
