package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ceama-enrollment-api/internal/middleware"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

// proofFormField is the multipart field carrying payment proof files.
const proofFormField = "files"

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentStaff(c)
	if !ok {
		return nil
	}
	return claims
}

func invalidPayload(err error, message string) error {
	return appErrors.WrapAs(err, appErrors.ErrValidation, message)
}

// proofUploads opens every file of the proof field. The returned func closes them.
func proofUploads(c *gin.Context) ([]service.ProofUpload, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		if err == http.ErrNotMultipart {
			return nil, func() {}, appErrors.Clone(appErrors.ErrValidation, "request must be multipart/form-data")
		}
		return nil, func() {}, invalidPayload(err, "invalid multipart payload")
	}
	headers := form.File[proofFormField]
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	uploads := make([]service.ProofUpload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, invalidPayload(err, "unable to read uploaded file")
		}
		opened = append(opened, file)
		uploads = append(uploads, service.ProofUpload{
			Filename: header.Filename,
			Size:     header.Size,
			MimeType: header.Header.Get("Content-Type"),
			Content:  file,
		})
	}
	return uploads, closeAll, nil
}
