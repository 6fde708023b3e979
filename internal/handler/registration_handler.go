package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/pkg/middleware/session"
	"github.com/noah-isme/ceama-enrollment-api/pkg/response"
)

type registrationService interface {
	StageRegistration(ctx context.Context, session string, req dto.StageRegistrationRequest) (*models.StagedRecord, error)
	StageGuardian(ctx context.Context, session string, req dto.StageGuardianRequest) (*models.StagedRecord, error)
	Preview(ctx context.Context, session string) (*dto.RegistrationPreview, error)
}

// RegistrationHandler exposes the two staging steps of public registration.
type RegistrationHandler struct {
	staging registrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(staging registrationService) *RegistrationHandler {
	return &RegistrationHandler{staging: staging}
}

// Stage godoc
// @Summary Stage student and plan selection
// @Tags Registration
// @Accept json
// @Produce json
// @Param payload body dto.StageRegistrationRequest true "Student data"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /registrations/stage [post]
func (h *RegistrationHandler) Stage(c *gin.Context) {
	var req dto.StageRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid registration payload"))
		return
	}
	record, err := h.staging.StageRegistration(c.Request.Context(), session.Value(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// StageGuardian godoc
// @Summary Stage guardian data
// @Tags Registration
// @Accept json
// @Produce json
// @Param payload body dto.StageGuardianRequest true "Guardian data"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /registrations/guardian [post]
func (h *RegistrationHandler) StageGuardian(c *gin.Context) {
	var req dto.StageGuardianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid guardian payload"))
		return
	}
	record, err := h.staging.StageGuardian(c.Request.Context(), session.Value(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Preview godoc
// @Summary Review staged registration before paying
// @Tags Registration
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /registrations/preview [get]
func (h *RegistrationHandler) Preview(c *gin.Context) {
	preview, err := h.staging.Preview(c.Request.Context(), session.Value(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}
