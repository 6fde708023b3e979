package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
	"github.com/noah-isme/ceama-enrollment-api/pkg/export"
)

// Lima does not observe daylight saving time.
var limaZone = time.FixedZone("PET", -5*60*60)

const (
	colStudent     = "Nombre del estudiante"
	colGrade       = "Grado"
	colStatus      = "Estado de matrícula"
	colAmount      = "Monto referencial"
	colCreatedAt   = "Fecha de creación"
	colAssignments = "Asignaciones (plan / aula / horario)"
)

var registrationExportHeaders = []string{colStudent, colGrade, colStatus, colAmount, colCreatedAt, colAssignments}

type registrationExportRepository interface {
	RegistrationExport(ctx context.Context, filter models.RegistrationExportFilter) ([]models.RegistrationExportRow, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
	Rows        int
}

// ExportService renders registration listings for staff.
type ExportService struct {
	repo   registrationExportRepository
	csv    csvRenderer
	pdf    receiptRenderer
	logger *zap.Logger
	now    func() time.Time
	title  string
}

// NewExportService constructs an ExportService. Nil renderers fall back to the package defaults.
func NewExportService(repo registrationExportRepository, csv csvRenderer, pdf receiptRenderer, appName string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if appName == "" {
		appName = "CEAMA"
	}
	return &ExportService{
		repo:   repo,
		csv:    csv,
		pdf:    pdf,
		logger: logger,
		now:    time.Now,
		title:  appName + " - Matrículas",
	}
}

// Registrations renders the filtered registration list as CSV or PDF.
func (s *ExportService) Registrations(ctx context.Context, filter models.RegistrationExportFilter, format models.ExportFormat) (*ExportFile, error) {
	format = models.ExportFormat(strings.ToLower(string(format)))
	if format == "" {
		format = models.ExportFormatCSV
	}
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	filter.Status = models.RegistrationStatus(strings.ToUpper(string(filter.Status)))
	switch filter.Status {
	case "", models.RegistrationStatusActive, models.RegistrationStatusInactive:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be ACTIVE or INACTIVE")
	}

	rows, err := s.repo.RegistrationExport(ctx, filter)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load registrations")
	}
	dataset := buildRegistrationDataset(rows)

	stamp := s.now().In(limaZone)
	file := &ExportFile{Rows: len(rows)}
	switch format {
	case models.ExportFormatPDF:
		file.Content, err = s.pdf.Render(export.Document{
			Title:   s.title,
			Summary: []export.Field{{Label: "Registros", Value: fmt.Sprintf("%d", len(rows))}},
			Table:   dataset,
			Footer:  "Generado el " + stamp.Format("2006-01-02 15:04"),
		})
		file.ContentType = "application/pdf"
	default:
		file.Content, err = s.csv.Render(dataset)
		file.ContentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to render export")
	}
	file.Filename = fmt.Sprintf("matriculas_ceama_%s.%s", stamp.Format("20060102_1504"), format)
	s.logger.Info("registrations exported", zap.String("format", string(format)), zap.Int("rows", len(rows)))
	return file, nil
}

func buildRegistrationDataset(rows []models.RegistrationExportRow) export.Dataset {
	data := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		created := ""
		if !row.CreatedAt.IsZero() {
			created = row.CreatedAt.In(limaZone).Format("2006-01-02 15:04")
		}
		data = append(data, map[string]string{
			colStudent:     row.StudentName,
			colGrade:       row.Grade,
			colStatus:      string(row.Status),
			colAmount:      fmt.Sprintf("%.2f", row.ReferenceAmount),
			colCreatedAt:   created,
			colAssignments: row.Assignments,
		})
	}
	return export.Dataset{Headers: registrationExportHeaders, Rows: data}
}
