package models

import "time"

// CollectionBucket aggregates approved payments for one grade or class group.
type CollectionBucket struct {
	Key   string  `db:"key" json:"key"`
	Label string  `db:"label" json:"label"`
	Total float64 `db:"total" json:"total"`
	Count int     `db:"count" json:"count"`
}

// CollectionTotals are ledger-wide sums. Collected counts PARTIAL and COMPLETED payments.
type CollectionTotals struct {
	Collected      float64 `db:"collected" json:"collected"`
	CollectedCount int     `db:"collected_count" json:"collected_count"`
	Pending        float64 `db:"pending" json:"pending"`
	PendingCount   int     `db:"pending_count" json:"pending_count"`
}

// CollectionsSummary is the staff money overview.
type CollectionsSummary struct {
	CollectionTotals
	ByGrade      []CollectionBucket `json:"by_grade"`
	ByAssignment []CollectionBucket `json:"by_assignment"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// ExportFormat selects the rendering of a registration export.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// RegistrationExportFilter narrows the registration export.
type RegistrationExportFilter struct {
	Status       RegistrationStatus
	AssignmentID string
	Search       string
}

// RegistrationExportRow is one registration flattened for spreadsheets.
type RegistrationExportRow struct {
	StudentName     string             `db:"student_name"`
	Grade           string             `db:"grade"`
	Status          RegistrationStatus `db:"status"`
	ReferenceAmount float64            `db:"reference_amount"`
	CreatedAt       time.Time          `db:"created_at"`
	Assignments     string             `db:"assignments"`
}
